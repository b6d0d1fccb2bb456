package auth

// Claims identifica al miembro del staff que opera sobre la clínica.
type Claims struct {
	UserID string
	Email  string
	Role   string // vet, receptionist, admin...
}
