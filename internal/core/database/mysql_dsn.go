package database

import (
	"net/url"
	"strings"
)

// normalizeMySQLDSN turns a mysql:// or jdbc:mysql:// URL into the
// user:pass@tcp(host)/db?... form go-sql-driver expects. Anything else is
// assumed to be a driver DSN already and is returned trimmed.
func normalizeMySQLDSN(input, userOverride, passOverride string) string {
	in := strings.TrimSpace(input)
	if rest, ok := strings.CutPrefix(in, "jdbc:"); ok && strings.HasPrefix(rest, "mysql://") {
		in = rest
	}
	if !strings.HasPrefix(in, "mysql://") {
		return in
	}
	u, err := url.Parse(in)
	if err != nil {
		return in // 交给驱动报错
	}

	q := u.Query()
	user, pass := credentials(u.User, q)
	if userOverride != "" {
		user = userOverride
	}
	if passOverride != "" {
		pass = passOverride
	}
	translateJDBCParams(q)

	var b strings.Builder
	if user != "" {
		b.WriteString(user)
		if pass != "" {
			b.WriteString(":" + pass)
		}
		b.WriteByte('@')
	}
	b.WriteString("tcp(" + u.Host + ")/" + strings.TrimPrefix(u.Path, "/"))
	if enc := q.Encode(); enc != "" {
		b.WriteString("?" + enc)
	}
	return b.String()
}

// credentials: query user/password win over the URL userinfo and are removed
// from q.
func credentials(info *url.Userinfo, q url.Values) (user, pass string) {
	if info != nil {
		user = info.Username()
		pass, _ = info.Password()
	}
	if v := popParam(q, "user"); v != "" {
		user = v
	}
	if v := popParam(q, "password"); v != "" {
		pass = v
	}
	return user, pass
}

// translateJDBCParams rewrites JDBC connection options into go-sql-driver
// ones and fills in parseTime and charset.
func translateJDBCParams(q url.Values) {
	if enc := popParam(q, "characterEncoding"); enc != "" && q.Get("charset") == "" {
		q.Set("charset", enc)
	}
	if tz := popParam(q, "serverTimezone"); tz != "" {
		q.Set("loc", tz)
	}
	if ssl := popParam(q, "useSSL"); ssl != "" {
		q.Set("tls", tlsMode(ssl))
	}
	// 驱动不认识的 JDBC 参数
	q.Del("useUnicode")
	q.Del("zeroDateTimeBehavior")

	if q.Get("parseTime") == "" {
		q.Set("parseTime", "true")
	}
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
}

func tlsMode(useSSL string) string {
	switch v := strings.ToLower(useSSL); v {
	case "true", "1":
		return "true"
	case "skip-verify", "preferred":
		return v
	default:
		return "false"
	}
}

func popParam(q url.Values, key string) string {
	v := q.Get(key)
	q.Del(key)
	return v
}

// maskDSN hides the password in a user:pass@... DSN for logging.
func maskDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	if at <= 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon <= 0 {
		return dsn
	}
	return dsn[:colon+1] + "****" + dsn[at:]
}
