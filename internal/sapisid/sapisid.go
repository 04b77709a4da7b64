// Package sapisid derives the signed SAPISIDHASH authorization value the
// video platform expects alongside session cookies.
package sapisid

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultOrigin is the origin hashed into the signature when none is given.
const DefaultOrigin = "https://www.youtube.com"

// Client identification sent with signed requests.
const (
	ClientName    = "1"
	ClientVersion = "2.20240501.01.00"
)

// Cookie names holding the signing secret, in lookup order.
var secretCookies = []string{"SAPISID", "__Secure-3PAPISID"}

// Build returns "SAPISIDHASH <ts>_<sha1hex("<ts> <sid> <origin>")>" for the
// secret found in cookies. ok is false when no secret cookie is present,
// which callers treat as "no auth header" rather than an error.
func Build(cookies map[string]string, origin string, now time.Time) (string, bool) {
	secret := ""
	for _, name := range secretCookies {
		if v := cookies[name]; v != "" {
			secret = v
			break
		}
	}
	if secret == "" {
		return "", false
	}
	if origin == "" {
		origin = DefaultOrigin
	}
	ts := strconv.FormatInt(now.Unix(), 10)
	sum := sha1.Sum([]byte(ts + " " + secret + " " + origin))
	return "SAPISIDHASH " + ts + "_" + hex.EncodeToString(sum[:]), true
}

// Headers returns the authorization header set for cookies, or nil when the
// cookies carry no signing secret.
func Headers(cookies map[string]string, origin string, now time.Time) map[string]string {
	if origin == "" {
		origin = DefaultOrigin
	}
	auth, ok := Build(cookies, origin, now)
	if !ok {
		return nil
	}
	return map[string]string{
		"Authorization":            auth,
		"Origin":                   origin,
		"X-Origin":                 origin,
		"X-Youtube-Client-Name":    ClientName,
		"X-Youtube-Client-Version": ClientVersion,
	}
}
