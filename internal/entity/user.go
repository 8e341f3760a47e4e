package entity

const RoleAdmin = "admin"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Roles        []string
}

func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Email: u.Email}
}
