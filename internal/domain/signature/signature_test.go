package signature_test

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/callsight/callsight/internal/domain/signature"
	. "github.com/smartystreets/goconvey/convey"
)

const testSecret = "wsec_1234567890abcdef"

func signedHeader(secret string, ts time.Time, body []byte) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v0=%s", t, signature.Sign(secret, t, body))
}

func TestVerifier_Verify(t *testing.T) {
	Convey("Given a verifier with a configured secret", t, func() {
		v := signature.NewVerifier(testSecret, signature.DefaultReplayWindow)
		now := time.Unix(1700000000, 0)
		body := []byte(`{"type":"post_call_transcription","data":{"conversation_id":"abc123"}}`)

		Convey("When the header carries a fresh, correctly signed request", func() {
			header := signedHeader(testSecret, now, body)

			Convey("Then verification accepts", func() {
				So(v.Verify(header, body, now), ShouldBeNil)
			})
		})

		Convey("When the request is exactly at the window edge", func() {
			header := signedHeader(testSecret, now.Add(-30*time.Minute), body)

			Convey("Then verification still accepts", func() {
				So(v.Verify(header, body, now), ShouldBeNil)
			})
		})

		Convey("When the timestamp is 31 minutes old with a valid signature", func() {
			header := signedHeader(testSecret, now.Add(-31*time.Minute), body)

			Convey("Then verification rejects as stale, not as forged", func() {
				So(v.Verify(header, body, now), ShouldEqual, signature.ErrStaleTimestamp)
			})
		})

		Convey("When the timestamp is in the future", func() {
			header := signedHeader(testSecret, now.Add(10*time.Minute), body)

			Convey("Then verification accepts", func() {
				So(v.Verify(header, body, now), ShouldBeNil)
			})
		})

		Convey("When the header is absent", func() {
			So(v.Verify("", body, now), ShouldEqual, signature.ErrMissingSignature)
		})

		Convey("When the header is missing the signature token", func() {
			So(v.Verify("t=1700000000", body, now), ShouldEqual, signature.ErrMalformedHeader)
		})

		Convey("When the header is missing the timestamp token", func() {
			So(v.Verify("v0=deadbeef", body, now), ShouldEqual, signature.ErrMalformedHeader)
		})

		Convey("When the timestamp is not numeric", func() {
			So(v.Verify("t=yesterday,v0=deadbeef", body, now), ShouldEqual, signature.ErrMalformedHeader)
		})

		Convey("When the header carries extra unknown keys", func() {
			ts := strconv.FormatInt(now.Unix(), 10)
			header := fmt.Sprintf("v1=ffff,t=%s,foo=bar,v0=%s", ts, signature.Sign(testSecret, ts, body))

			Convey("Then parsing stays permissive and verification accepts", func() {
				So(v.Verify(header, body, now), ShouldBeNil)
			})
		})

		Convey("When the body is unavailable", func() {
			header := signedHeader(testSecret, now, body)
			So(v.Verify(header, nil, now), ShouldEqual, signature.ErrBodyUnavailable)
		})

		Convey("When the body was altered after signing", func() {
			header := signedHeader(testSecret, now, body)
			tampered := append([]byte{}, body...)
			tampered[len(tampered)-1] ^= 0x01

			Convey("Then verification rejects the signature", func() {
				So(v.Verify(header, tampered, now), ShouldEqual, signature.ErrInvalidSignature)
			})
		})

		Convey("When the signature differs from the correct value", func() {
			ts := strconv.FormatInt(now.Unix(), 10)
			correct := signature.Sign(testSecret, ts, body)

			Convey("Then a flip at any position rejects", func() {
				// Structural stand-in for a timing test: every mismatch
				// position takes the constant-time path through hmac.Equal.
				for _, pos := range []int{0, len(correct) / 2, len(correct) - 1} {
					bad := []byte(correct)
					if bad[pos] == 'a' {
						bad[pos] = 'b'
					} else {
						bad[pos] = 'a'
					}
					header := fmt.Sprintf("t=%s,v0=%s", ts, string(bad))
					So(v.Verify(header, body, now), ShouldEqual, signature.ErrInvalidSignature)
				}
			})

			Convey("And a truncated signature rejects", func() {
				header := fmt.Sprintf("t=%s,v0=%s", ts, correct[:10])
				So(v.Verify(header, body, now), ShouldEqual, signature.ErrInvalidSignature)
			})
		})

		Convey("When the signature was produced with a different secret", func() {
			header := signedHeader("wrong-secret", now, body)
			So(v.Verify(header, body, now), ShouldEqual, signature.ErrInvalidSignature)
		})
	})

	Convey("Given a verifier with no secret configured", t, func() {
		v := signature.NewVerifier("", signature.DefaultReplayWindow)
		now := time.Now()
		body := []byte(`{}`)
		header := signedHeader(testSecret, now, body)

		Convey("Then verification reports a configuration error before anything else", func() {
			So(v.Verify(header, body, now), ShouldEqual, signature.ErrSecretNotConfigured)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given signature headers", t, func() {
		Convey("A well-formed header parses into both tokens", func() {
			ts, sig, err := signature.Parse("t=1700000000,v0=abcdef")
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, "1700000000")
			So(sig, ShouldEqual, "abcdef")
		})

		Convey("Whitespace around parts is tolerated", func() {
			ts, sig, err := signature.Parse(" t=1 , v0=2 ")
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, "1")
			So(sig, ShouldEqual, "2")
		})

		Convey("A header with only unknown keys is malformed", func() {
			_, _, err := signature.Parse("v1=abc,foo=bar")
			So(err, ShouldEqual, signature.ErrMalformedHeader)
		})
	})
}
