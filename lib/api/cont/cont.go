package cont

import "context"

type ctxKey string

const (
	ClientIPKey ctxKey = "clientIP"
	UserIDKey   ctxKey = "userID"
)

// PutClientIP stores the peer address resolved by the router middleware.
func PutClientIP(c context.Context, ip string) context.Context {
	return context.WithValue(c, ClientIPKey, ip)
}

func GetClientIP(c context.Context) string {
	ip, _ := c.Value(ClientIPKey).(string)
	return ip
}

func PutUserID(c context.Context, id string) context.Context {
	return context.WithValue(c, UserIDKey, id)
}

// GetUserID returns an empty string when the request has no signed-in user.
func GetUserID(c context.Context) string {
	id, _ := c.Value(UserIDKey).(string)
	return id
}
