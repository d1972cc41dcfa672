package config

import (
	"fmt"
	"net/http"
	"strings"
)

// ParseSameSite maps a same_site setting to its cookie attribute.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	}
	return 0, fmt.Errorf("config: unknown csrf.same_site %q", s)
}
