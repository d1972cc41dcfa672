package csrf

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, secret string) *Signer {
	t.Helper()
	s, err := NewSigner([]byte(secret))
	require.NoError(t, err)
	return s
}

func signClaims(t *testing.T, s *Signer, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(s.key)
	require.NoError(t, err)
	return tok
}

func TestNewSigner_EmptySecret(t *testing.T) {
	_, err := NewSigner(nil)
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewSigner([]byte{})
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = IssueToken(nil, time.Now(), 60)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestIssueThenValidate_Accepts(t *testing.T) {
	cases := []struct {
		secret string
		now    time.Time
		expiry int
	}{
		{"s3cr3t", time.Unix(1000, 0), 60},
		{"another-secret", time.Unix(1700000000, 500), 1},
		{"x", time.Unix(1, 0), 86400},
	}

	for _, tc := range cases {
		token, err := IssueToken([]byte(tc.secret), tc.now, tc.expiry)
		require.NoError(t, err)
		assert.NoError(t, ValidateToken([]byte(tc.secret), tc.now, token), "secret %q", tc.secret)
	}
}

func TestScenario_S3cr3tSixtySeconds(t *testing.T) {
	secret := []byte("s3cr3t")

	token, err := IssueToken(secret, time.Unix(1000, 0), 60)
	require.NoError(t, err)

	assert.NoError(t, ValidateToken(secret, time.Unix(1030, 0), token))
	assert.ErrorIs(t, ValidateToken(secret, time.Unix(1061, 0), token), ErrExpired)
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")
	t0 := time.Unix(5000, 0)

	for _, e := range []int{1, 2, 60, 3600} {
		token, err := s.Issue(t0, time.Duration(e)*time.Second)
		require.NoError(t, err)

		last := t0.Add(time.Duration(e-1) * time.Second)
		end := t0.Add(time.Duration(e) * time.Second)

		assert.NoError(t, s.Validate(last, token), "e=%d at t0+e-1", e)
		assert.ErrorIs(t, s.Validate(end, token), ErrExpired, "e=%d at t0+e", e)
		assert.Equal(t, ReasonExpired, ReasonOf(s.Validate(end, token)))
	}
}

func TestValidate_BeforeIssuedAtIsOutsideWindow(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")

	token, err := s.Issue(time.Unix(1000, 0), time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Validate(time.Unix(999, 0), token), ErrExpired)
	assert.NoError(t, s.Validate(time.Unix(1000, 0), token))
}

func TestValidate_MutatedSignature(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")
	now := time.Unix(1000, 0)

	token, err := s.Issue(now, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := parts[2]

	for i := 0; i < len(sig); i++ {
		for _, alt := range []byte{'A', 'B', '_', '!'} {
			if sig[i] == alt {
				continue
			}
			mutated := []byte(sig)
			mutated[i] = alt
			forged := parts[0] + "." + parts[1] + "." + string(mutated)

			err := s.Validate(now, forged)
			assert.ErrorIs(t, err, ErrBadSignature, "index %d -> %q", i, alt)
		}
	}
}

func TestValidate_TruncatedOrEmptySignature(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")
	now := time.Unix(1000, 0)

	token, err := s.Issue(now, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	assert.ErrorIs(t, s.Validate(now, parts[0]+"."+parts[1]+"."), ErrBadSignature)
	assert.ErrorIs(t, s.Validate(now, token[:len(token)-4]), ErrBadSignature)
}

func TestValidate_DifferentSecret(t *testing.T) {
	now := time.Unix(1000, 0)

	for _, other := range []string{"s3cr3u", "S3CR3T", "s3cr3t ", "completely-different"} {
		token, err := IssueToken([]byte("s3cr3t"), now, 60)
		require.NoError(t, err)

		err = ValidateToken([]byte(other), now, token)
		assert.ErrorIs(t, err, ErrBadSignature, "secret %q", other)
	}
}

func TestValidate_Malformed(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")

	for _, raw := range []string{
		"not-a-token",
		"",
		"a.b",
		"a.b.c",
		"a.b.c.d",
		"eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.sig",
	} {
		for _, at := range []int64{0, 1000, 1 << 40} {
			err := s.Validate(time.Unix(at, 0), raw)
			assert.ErrorIs(t, err, ErrMalformed, "%q at %d", raw, at)
			assert.Equal(t, ReasonMalformed, ReasonOf(err))
		}
	}
}

func TestValidate_MissingOrInvertedWindowIsMalformed(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")
	now := time.Unix(1000, 0)

	noExp := signClaims(t, s, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt: jwt.NewNumericDate(now),
	})
	noIat := signClaims(t, s, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	})
	inverted := signClaims(t, s, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now),
	})

	assert.ErrorIs(t, s.Validate(now, noExp), ErrMalformed)
	assert.ErrorIs(t, s.Validate(now, noIat), ErrMalformed)
	assert.ErrorIs(t, s.Validate(now, inverted), ErrMalformed)
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")
	now := time.Unix(1000, 0)
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}

	hs512 := signClaims(t, s, jwt.SigningMethodHS512, claims)
	assert.ErrorIs(t, s.Validate(now, hs512), ErrBadSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Validate(now, none), ErrBadSignature)
}

func TestIssue_ClaimsAndDeterminism(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")
	now := time.Unix(1000, 999)

	token, err := s.Issue(now, 0)
	require.NoError(t, err)

	var claims Claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), claims.IssuedAt.Unix())
	assert.Equal(t, int64(DefaultExpiry/time.Second), claims.window())
	assert.NotEmpty(t, claims.ID)

	other, err := s.Issue(now, 0)
	require.NoError(t, err)
	assert.NotEqual(t, token, other, "tokens carry a unique id")

	// Same claims under the same secret sign to the same bytes.
	again := newTestSigner(t, "s3cr3t")
	assert.Equal(t,
		signClaims(t, s, jwt.SigningMethodHS256, claims),
		signClaims(t, again, jwt.SigningMethodHS256, claims),
	)
}

func TestCheckDoubleSubmit(t *testing.T) {
	assert.NoError(t, CheckDoubleSubmit("token-a", "token-a"))

	err := CheckDoubleSubmit("token-a", "token-b")
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Equal(t, ReasonMismatch, ReasonOf(err))

	assert.ErrorIs(t, CheckDoubleSubmit("token-a", ""), ErrMismatch)
	assert.ErrorIs(t, CheckDoubleSubmit("token-a", "token-a "), ErrMismatch)
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, ReasonNone, ReasonOf(nil))
	assert.Equal(t, ReasonBadSignature, ReasonOf(ErrBadSignature))
	assert.Equal(t, ReasonUnknown, ReasonOf(ErrEmptySecret))
}

func TestValidate_Concurrent(t *testing.T) {
	s := newTestSigner(t, "s3cr3t")
	now := time.Unix(1000, 0)

	token, err := s.Issue(now, time.Minute)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Validate(now, token)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
