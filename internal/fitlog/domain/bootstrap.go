package domain

// BootstrapAdmin is the account created on first start when the user table is empty.
type BootstrapAdmin struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (b BootstrapAdmin) Configured() bool {
	return b.Username != "" && b.Email != "" && b.Password != ""
}
