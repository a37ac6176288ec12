package security

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

// Options controls verification against the identity service's key set.
type Options struct {
	KeySetURL    string        // JWKS endpoint of the identity authority
	RefreshEvery time.Duration // key set refresh period (default 15m)
	HTTPTimeout  time.Duration // fetch timeout (default 5s)
	Issuer       string        // expected iss; empty skips the check
}

func (o *Options) norm() {
	if o.RefreshEvery <= 0 {
		o.RefreshEvery = 15 * time.Minute
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 5 * time.Second
	}
}

// Identity is the claim set a connection is bound to. Immutable after
// authentication.
type Identity struct {
	UserID         string   `json:"sub"`
	OrganizationID string   `json:"organizationId"`
	TeamIDs        []string `json:"teamIds"`
	Roles          []string `json:"roles"`
	Permissions    []string `json:"permissions"`
}

func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (id *Identity) InTeam(teamID string) bool {
	for _, t := range id.TeamIDs {
		if t == teamID {
			return true
		}
	}
	return false
}

// Verifier validates bearer tokens against a periodically refreshed
// RSA public key set. It owns no state beyond the key cache.
type Verifier struct {
	opts Options

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey // kid -> key

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewVerifier fetches the key set once, then refreshes it on a timer.
// The initial fetch error is returned so a bad KeySetURL fails fast.
func NewVerifier(opts Options) (*Verifier, error) {
	opts.norm()
	v := &Verifier{
		opts:   opts,
		keys:   make(map[string]*rsa.PublicKey),
		stopCh: make(chan struct{}),
	}
	if err := v.refresh(); err != nil {
		return nil, err
	}
	go v.refreshLoop()
	return v, nil
}

// NewStaticVerifier skips remote fetching and trusts the given keys.
// Used by tests and by deployments that mount keys locally.
func NewStaticVerifier(keys map[string]*rsa.PublicKey, opts Options) *Verifier {
	opts.norm()
	cp := make(map[string]*rsa.PublicKey, len(keys))
	for k, key := range keys {
		cp[k] = key
	}
	return &Verifier{opts: opts, keys: cp, stopCh: make(chan struct{})}
}

func (v *Verifier) Close() {
	v.stopOnce.Do(func() { close(v.stopCh) })
}

// Verify parses and validates a bearer token and extracts the identity
// claims. Failures map onto the connection-level error taxonomy.
func (v *Verifier) Verify(token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errs.ErrAuthenticationRequired
	}

	parserOpts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	}
	if v.opts.Issuer != "" {
		parserOpts = append(parserOpts, jwtlib.WithIssuer(v.opts.Issuer))
	}

	parsed, err := jwtlib.Parse(token, v.keyFunc, parserOpts...)
	if err != nil {
		return nil, errs.ErrInvalidCredential.WithDetail(err.Error())
	}
	if !parsed.Valid {
		return nil, errs.ErrInvalidCredential
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errs.ErrInvalidCredential.WithDetail("claims type mismatch")
	}
	return identityFromClaims(claims)
}

func (v *Verifier) keyFunc(t *jwtlib.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
	}
	kid, _ := t.Header["kid"].(string)

	v.mu.RLock()
	defer v.mu.RUnlock()
	if kid != "" {
		if k, ok := v.keys[kid]; ok {
			return k, nil
		}
		return nil, fmt.Errorf("unknown kid: %s", kid)
	}
	// no kid: a single-key set is unambiguous
	if len(v.keys) == 1 {
		for _, k := range v.keys {
			return k, nil
		}
	}
	return nil, errors.New("token has no kid and key set is not singular")
}

func identityFromClaims(claims jwtlib.MapClaims) (*Identity, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errs.ErrInvalidCredential.WithDetail("missing sub claim")
	}
	org, _ := claims["organizationId"].(string)
	if org == "" {
		return nil, errs.ErrInvalidCredential.WithDetail("missing organizationId claim")
	}
	return &Identity{
		UserID:         sub,
		OrganizationID: org,
		TeamIDs:        stringSlice(claims["teamIds"]),
		Roles:          stringSlice(claims["roles"]),
		Permissions:    stringSlice(claims["permissions"]),
	}, nil
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ===== key set refresh =====

type jwksDoc struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (v *Verifier) refreshLoop() {
	t := time.NewTicker(v.opts.RefreshEvery)
	defer t.Stop()
	for {
		select {
		case <-v.stopCh:
			return
		case <-t.C:
			// keep the last good set on failure
			_ = v.refresh()
		}
	}
}

func (v *Verifier) refresh() error {
	if v.opts.KeySetURL == "" {
		return errors.New("key set url missing")
	}
	client := &http.Client{Timeout: v.opts.HTTPTimeout}
	resp, err := client.Get(v.opts.KeySetURL)
	if err != nil {
		return errors.Wrap(err, "fetch key set")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("key set fetch status %d", resp.StatusCode)
	}

	var doc jwksDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return errors.Wrap(err, "decode key set")
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			return errors.Wrapf(err, "parse key %s", k.Kid)
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("key set contains no RSA keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.mu.Unlock()
	return nil
}

func parseRSAKey(k jwksKey) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, errors.Wrap(err, "modulus")
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, errors.Wrap(err, "exponent")
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
