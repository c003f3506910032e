// internal/loader/connection.go - Connection string handling
package loader

import (
	"strings"
)

// keyword aliases accepted in semicolon separated connection strings
var keywordAliases = map[string]string{
	"host":             "host",
	"server":           "host",
	"port":             "port",
	"username":         "user",
	"user":             "user",
	"user id":          "user",
	"userid":           "user",
	"password":         "password",
	"database":         "dbname",
	"dbname":           "dbname",
	"db":               "dbname",
	"sslmode":          "sslmode",
	"ssl mode":         "sslmode",
	"timeout":          "connect_timeout",
	"connect_timeout":  "connect_timeout",
	"application name": "application_name",
	"applicationname":  "application_name",
	"search path":      "search_path",
	"searchpath":       "search_path",
}

// NormalizeConnection converts a "Key=Value;Key=Value" connection string into
// the libpq keyword form. URLs and strings that are already in keyword form
// are returned unchanged.
func NormalizeConnection(conn string) string {
	conn = strings.TrimSpace(conn)
	if conn == "" || strings.Contains(conn, "://") || !strings.Contains(conn, ";") {
		return conn
	}

	var parts []string
	for _, pair := range strings.Split(conn, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if mapped, ok := keywordAliases[key]; ok {
			key = mapped
		} else {
			key = strings.ReplaceAll(key, " ", "_")
		}
		parts = append(parts, key+"="+quoteValue(value))
	}

	return strings.Join(parts, " ")
}

// quoteValue quotes a keyword value when it is empty or has spaces or quotes
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
