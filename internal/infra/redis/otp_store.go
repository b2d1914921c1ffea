package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/security/otp"
)

const (
	fieldCode      = "code"
	fieldExpiresAt = "expires_at"
	fieldUsed      = "used"
)

var markUsedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('HSET', KEYS[1], 'used', '1')
  return 1
end
return 0
`)

// OTPStore implements otp.Store with one hash per owner. Redis deletes the
// hash when the code expires.
type OTPStore struct {
	c   *Client
	now func() time.Time
}

var _ otp.Store = (*OTPStore)(nil)

// NewOTPStore creates a code store on c.
func NewOTPStore(c *Client) *OTPStore {
	return &OTPStore{c: c, now: time.Now}
}

func (s *OTPStore) Save(ctx context.Context, ownerKey, code string, expiresAt time.Time) error {
	key := s.c.otpKey(otp.OwnerKey(ownerKey))

	_, err := s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldCode, code,
			fieldExpiresAt, expiresAt.UnixMilli(),
			fieldUsed, "0",
		)
		pipe.PExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

func (s *OTPStore) Verify(ctx context.Context, ownerKey, code string) (bool, error) {
	fields, err := s.c.rdb.HGetAll(ctx, s.c.otpKey(otp.OwnerKey(ownerKey))).Result()
	if err != nil {
		return false, fmt.Errorf("read code: %w", err)
	}
	return liveMatch(fields, code, s.now()), nil
}

func (s *OTPStore) MarkUsed(ctx context.Context, ownerKey string) error {
	if err := markUsedScript.Run(ctx, s.c.rdb, []string{s.c.otpKey(otp.OwnerKey(ownerKey))}).Err(); err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	return nil
}

func (s *OTPStore) Clear(ctx context.Context, ownerKey string) error {
	if err := s.c.rdb.Del(ctx, s.c.otpKey(otp.OwnerKey(ownerKey))).Err(); err != nil {
		return fmt.Errorf("clear code: %w", err)
	}
	return nil
}

// liveMatch reports whether a stored hash holds code, unused and unexpired.
func liveMatch(fields map[string]string, code string, now time.Time) bool {
	if len(fields) == 0 || fields[fieldUsed] == "1" {
		return false
	}
	expiresMs, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil || !now.Before(time.UnixMilli(expiresMs)) {
		return false
	}
	return otp.CodesEqual(fields[fieldCode], code)
}
