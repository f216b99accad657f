package cache

import "fmt"

func JobsKey(namespace string) string {
	return fmt.Sprintf("%s:jobs", namespace)
}

func SessionKey(namespace string) string {
	return fmt.Sprintf("%s:session", namespace)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
