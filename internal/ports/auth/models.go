package auth

// Claims representa la identidad extraída de un token verificado.
type Claims struct {
	UserID   string
	Username string
	Email    string
}
