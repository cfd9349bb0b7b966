package dueldto

// RequestMeta identifies who sent a command and where.
type RequestMeta struct {
	Room       string
	SenderID   string
	SenderName string
}
