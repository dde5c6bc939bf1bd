package server

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/log"
	"golang.org/x/crypto/sha3"
)

const (
	// PreviewCookie holds the signed preview grant.
	PreviewCookie = "__sf_preview"

	previewTTL = time.Hour
)

// previewGate issues and verifies preview cookies. A nil gate never grants
// preview.
type previewGate struct {
	secret []byte
	key    []byte
}

func newPreviewGate(secret, sessionSecret string) *previewGate {
	return &previewGate{secret: []byte(secret), key: []byte(sessionSecret)}
}

func (g *previewGate) sign(expires int64) string {
	mac := hmac.New(func() hash.Hash { return sha3.New256() }, g.key)
	mac.Write([]byte("preview." + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// token returns the cookie value granting preview until expires.
func (g *previewGate) token(expires time.Time) string {
	unix := expires.Unix()
	return strconv.FormatInt(unix, 10) + "." + g.sign(unix)
}

func (g *previewGate) valid(value string, now time.Time) bool {
	exp, sig, ok := strings.Cut(value, ".")
	if !ok {
		return false
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil || now.Unix() >= unix {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(g.sign(unix)))
}

// Enabled reports whether r carries a valid, unexpired preview cookie.
func (g *previewGate) Enabled(r *http.Request, now time.Time) bool {
	if g == nil {
		return false
	}
	c, err := r.Cookie(PreviewCookie)
	if err != nil {
		return false
	}
	return g.valid(c.Value, now)
}

func (g *previewGate) secretMatches(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), g.secret) == 1
}

func (s *Server) handlePreview(c *gin.Context) {
	if s.preview == nil {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	if !s.preview.secretMatches(c.Query("secret")) {
		log.FromContext(c.Request.Context()).Warn("preview rejected")
		c.String(http.StatusUnauthorized, "Invalid token")
		return
	}
	slug := strings.Trim(c.Query("slug"), "/")
	if slug == "" || strings.ContainsAny(slug, "/\\") {
		c.String(http.StatusBadRequest, "Invalid slug")
		return
	}

	expires := s.now().Add(previewTTL)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     PreviewCookie,
		Value:    s.preview.token(expires),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	c.Redirect(http.StatusTemporaryRedirect, "/pages/"+url.PathEscape(slug))
}

func (s *Server) handlePreviewDisable(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     PreviewCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	c.Redirect(http.StatusTemporaryRedirect, "/")
}
