package fetch

import (
	"log/slog"
	"net/url"
	"strings"
)

// credentialParams are query parameters whose values never appear in errors
// or logs. Visual Crossing passes its API key as "key".
var credentialParams = map[string]bool{
	"key":          true,
	"apikey":       true,
	"api_key":      true,
	"token":        true,
	"access_token": true,
}

const redacted = "REDACTED"

// redactor hides the credentials carried by one URL.
type redactor struct {
	secrets []string
}

func newRedactor(raw string) redactor {
	u, err := url.Parse(raw)
	if err != nil {
		return redactor{}
	}

	var r redactor
	add := func(s string) {
		if s == "" {
			return
		}
		r.secrets = append(r.secrets, s)
		if esc := url.QueryEscape(s); esc != s {
			r.secrets = append(r.secrets, esc)
		}
	}
	for name, values := range u.Query() {
		if !credentialParams[strings.ToLower(name)] {
			continue
		}
		for _, v := range values {
			add(v)
		}
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			add(pw)
		}
	}
	return r
}

func (r redactor) string(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return s
}

// error returns err with every credential removed from its message.
// errors.Is and errors.As still see the original chain.
func (r redactor) error(err error) error {
	if err == nil || len(r.secrets) == 0 {
		return err
	}
	return &redactedError{msg: r.string(err.Error()), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// RedactURL returns raw with credential query values and any userinfo
// password replaced.
func RedactURL(raw string) string {
	return newRedactor(raw).string(raw)
}

// redactingLogger adapts a slog.Logger to retryablehttp's LeveledLogger,
// redacting any URL-valued attribute.
type redactingLogger struct {
	l *slog.Logger
}

func (r redactingLogger) Error(msg string, kv ...any) { r.l.Error(msg, redactKV(kv)...) }
func (r redactingLogger) Warn(msg string, kv ...any)  { r.l.Warn(msg, redactKV(kv)...) }
func (r redactingLogger) Info(msg string, kv ...any)  { r.l.Info(msg, redactKV(kv)...) }
func (r redactingLogger) Debug(msg string, kv ...any) { r.l.Debug(msg, redactKV(kv)...) }

func redactKV(kv []any) []any {
	out := make([]any, len(kv))
	for i, v := range kv {
		switch v := v.(type) {
		case *url.URL:
			out[i] = RedactURL(v.String())
		case string:
			out[i] = redactText(v)
		case error:
			out[i] = redactText(v.Error())
		default:
			out[i] = v
		}
	}
	return out
}

// redactText redacts every URL embedded in free text, such as the
// `Get "https://...": dial tcp ...` messages of net/http.
func redactText(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	for _, tok := range strings.Fields(s) {
		tok = strings.Trim(tok, `"':,()`)
		if strings.Contains(tok, "://") {
			s = newRedactor(tok).string(s)
		}
	}
	return s
}
