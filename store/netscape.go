package store

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Netscape cookie-file exchange format: one record per line, seven
// tab-separated fields
//
//	domain  includeSubdomains  path  secureOnly  expiry  name  value
//
// Booleans serialize as the literal strings TRUE and FALSE, expiry is epoch
// seconds with 0 meaning session-only, and HttpOnly records carry the
// conventional "#HttpOnly_" prefix on the domain field. Lines starting with
// "#" (other than the HttpOnly prefix) are comments.

const (
	netscapeHeader = "# Netscape HTTP Cookie File"
	httpOnlyPrefix = "#HttpOnly_"
	netscapeFields = 7
)

// ParseNetscapeLine parses a single cookie record.
func ParseNetscapeLine(line string) (Cookie, error) {
	var c Cookie

	if rest, ok := strings.CutPrefix(line, httpOnlyPrefix); ok {
		c.HttpOnly = true
		line = rest
	}

	fields := strings.Split(line, "\t")
	if len(fields) != netscapeFields {
		return Cookie{}, fmt.Errorf("cookie line has %d fields, want %d", len(fields), netscapeFields)
	}

	includeSub, err := parseNetscapeBool(fields[1])
	if err != nil {
		return Cookie{}, fmt.Errorf("includeSubdomains: %w", err)
	}
	secure, err := parseNetscapeBool(fields[3])
	if err != nil {
		return Cookie{}, fmt.Errorf("secureOnly: %w", err)
	}
	expiry, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Cookie{}, fmt.Errorf("expiry %q: %w", fields[4], err)
	}
	if fields[5] == "" {
		return Cookie{}, fmt.Errorf("cookie name is empty")
	}

	c.Domain = CanonicalDomain(fields[0])
	c.IncludeSubdomains = includeSub
	c.Path = fields[2]
	c.Secure = secure
	if expiry > 0 {
		c.Expires = time.Unix(expiry, 0)
	}
	c.Name = fields[5]
	c.Value = fields[6]
	return c, nil
}

// FormatNetscapeLine renders a cookie as one file line, without a trailing
// newline. Domain cookies are written with the conventional leading dot.
func FormatNetscapeLine(c Cookie) string {
	domain := CanonicalDomain(c.Domain)
	if c.IncludeSubdomains {
		domain = "." + domain
	}
	var expiry int64
	if !c.Expires.IsZero() {
		expiry = c.Expires.Unix()
	}
	line := strings.Join([]string{
		domain,
		formatNetscapeBool(c.IncludeSubdomains),
		c.Path,
		formatNetscapeBool(c.Secure),
		strconv.FormatInt(expiry, 10),
		c.Name,
		c.Value,
	}, "\t")
	if c.HttpOnly {
		line = httpOnlyPrefix + line
	}
	return line
}

// ReadNetscape parses every record from r, skipping comments and blank lines.
func ReadNetscape(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, httpOnlyPrefix) {
			continue
		}
		c, err := ParseNetscapeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cookies = append(cookies, c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// WriteNetscape writes a header followed by one line per cookie.
func WriteNetscape(w io.Writer, cookies []Cookie) error {
	if _, err := io.WriteString(w, netscapeHeader+"\n"); err != nil {
		return err
	}
	for _, c := range cookies {
		if _, err := io.WriteString(w, FormatNetscapeLine(c)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func parseNetscapeBool(s string) (bool, error) {
	switch s {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	}
	return false, fmt.Errorf("want TRUE or FALSE, got %q", s)
}

func formatNetscapeBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
