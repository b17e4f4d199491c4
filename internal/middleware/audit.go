package middleware

import (
	"bytes"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/services"
	"github.com/huangang/sqldesk/pkg/logger"
	"github.com/tidwall/gjson"
)

const maxAuditBody = 2000

var sensitiveKeys = []string{"password", "old_password", "new_password", "db_pass", "pass", "token", "secret"}

// AuditLog records write operations (POST/PUT/DELETE) to system_logs.
func AuditLog(logs *services.SystemLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskSensitiveFields(string(raw))
			if len(body) > maxAuditBody {
				body = body[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		userID := GetUserID(c)
		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var uid *uint
		if userID > 0 {
			uid = &userID
		}

		entry := services.LogEntry{
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status),
			UserID:    uid,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: logger.RequestID(c),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   body,
			},
		}
		if status >= 500 {
			logs.Error(entry)
		} else {
			logs.Info(entry)
		}
	}
}

// parseRouteInfo derives module and action from a Gin route pattern.
// e.g. "/api/templates/:id/run" + "POST" → "Templates", "Run"
func parseRouteInfo(fullPath, method string) (module, action string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(fullPath, "/api/"), "/"), "/")

	module = titleWords(parts[0])
	if module == "" {
		module = "Unknown"
	}

	switch method {
	case "POST":
		action = "Create"
	case "PUT":
		action = "Update"
	case "DELETE":
		action = "Delete"
	default:
		action = method
	}

	// Trailing verbs like /run, /resolve, /import name the action.
	if last := parts[len(parts)-1]; len(parts) > 1 && !strings.HasPrefix(last, ":") {
		action = titleWords(last)
	}
	return module, action
}

// titleWords turns "template-runs" into "Template Runs".
func titleWords(s string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatAuditMessage(username, method, path string, status int) string {
	var b strings.Builder
	b.WriteString("[Audit] ")
	b.WriteString(username)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	if status >= 200 && status < 300 {
		b.WriteString(" OK")
	} else {
		b.WriteString(" Failed")
	}
	return b.String()
}

// maskSensitiveFields blanks top-level string values of sensitive keys in a
// JSON body. Non-JSON bodies are returned unchanged.
func maskSensitiveFields(body string) string {
	if !gjson.Valid(body) {
		return body
	}
	for _, key := range sensitiveKeys {
		v := gjson.Get(body, key)
		if v.Type != gjson.String || v.Index == 0 {
			continue
		}
		body = body[:v.Index] + `"***"` + body[v.Index+len(v.Raw):]
	}
	return body
}
