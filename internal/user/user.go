package user

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
}

type User struct {
	ID           string   `json:"id"`
	Login        string   `json:"login"`
	PasswordHash string   `json:"-"`
	Role         Role     `json:"role"`
	Balance      float64  `json:"balance"`
	Profile      *Profile `json:"profile,omitempty"`
	CreatedAt    int64    `json:"created_at,omitempty"`
}
