package registry

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"wht-store-pay/internal/constant"
	rediskey "wht-store-pay/internal/types/redis-key"
)

// KEYS[1] entry hash, KEYS[2] payment index, KEYS[3] time index
// ARGV[1] payment id, ARGV[2] createdAt ms, ARGV[3] purchase key
var putScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'pid', ARGV[1], 'at', ARGV[2])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[3])
return 1
`)

// ARGV[1] expected payment id ("" matches any), ARGV[2] purchase key
var takeScript = redis.NewScript(`
local pid = redis.call('HGET', KEYS[1], 'pid')
if not pid then
  return false
end
if ARGV[1] ~= '' and ARGV[1] ~= pid then
  return false
end
local at = redis.call('HGET', KEYS[1], 'at')
redis.call('DEL', KEYS[1])
if redis.call('HGET', KEYS[2], pid) == ARGV[2] then
  redis.call('HDEL', KEYS[2], pid)
end
redis.call('ZREM', KEYS[3], ARGV[2])
return {pid, at}
`)

// RedisRegistry keeps pending payments in redis so they survive a restart.
// Take runs as one Lua script, which keeps removal atomic across instances.
type RedisRegistry struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRegistry(rdb *redis.Client, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = rediskey.PendingPrefix
	}
	return &RedisRegistry{rdb: rdb, prefix: prefix}
}

func (r *RedisRegistry) entryKey(ks string) string { return rediskey.PendingEntry(r.prefix, ks) }
func (r *RedisRegistry) paymentIndex() string { return rediskey.PendingPaymentIndex(r.prefix) }
func (r *RedisRegistry) timeIndex() string { return rediskey.PendingTimeIndex(r.prefix) }

func (r *RedisRegistry) keys(ks string) []string {
	return []string{r.entryKey(ks), r.paymentIndex(), r.timeIndex()}
}

func (r *RedisRegistry) Put(ctx context.Context, p PendingPayment) error {
	ks := p.Key.String()
	ok, err := putScript.Run(ctx, r.rdb, r.keys(ks), p.PaymentID, p.CreatedAt.UnixMilli(), ks).Int()
	if err != nil {
		return constant.Wrap(constant.CodeRedisError, err, "put %s", ks)
	}
	if ok == 0 {
		return constant.Errorf(constant.CodeDuplicatePendingPayment, "key %s", ks)
	}
	return nil
}

func (r *RedisRegistry) Take(ctx context.Context, key PurchaseKey, paymentID string) (*PendingPayment, error) {
	ks := key.String()
	res, err := takeScript.Run(ctx, r.rdb, r.keys(ks), paymentID, ks).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, constant.Wrap(constant.CodeRedisError, err, "take %s", ks)
	}
	if len(res) != 2 {
		return nil, constant.Errorf(constant.CodeRedisError, "take %s: unexpected reply %v", ks, res)
	}
	pid, _ := res[0].(string)
	atStr, _ := res[1].(string)
	ms, err := strconv.ParseInt(atStr, 10, 64)
	if err != nil {
		return nil, constant.Wrap(constant.CodeRedisError, err, "take %s: bad createdAt", ks)
	}
	return &PendingPayment{Key: key, PaymentID: pid, CreatedAt: time.UnixMilli(ms)}, nil
}

func (r *RedisRegistry) FindByPaymentID(ctx context.Context, paymentID string) (*PurchaseKey, error) {
	ks, err := r.rdb.HGet(ctx, r.paymentIndex(), paymentID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, constant.Wrap(constant.CodeRedisError, err, "find %s", paymentID)
	}
	k, err := ParseKey(ks)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *RedisRegistry) TakeStale(ctx context.Context, cutoff time.Time) ([]PendingPayment, error) {
	members, err := r.rdb.ZRangeByScore(ctx, r.timeIndex(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, constant.Wrap(constant.CodeRedisError, err, "range stale")
	}
	var out []PendingPayment
	for _, ks := range members {
		k, err := ParseKey(ks)
		if err != nil {
			// 无法解析的成员直接剔除，避免每次清扫都命中
			r.rdb.ZRem(ctx, r.timeIndex(), ks)
			continue
		}
		p, err := r.Take(ctx, k, "")
		if err != nil {
			return out, err
		}
		// another instance may have taken it first
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *RedisRegistry) Len(ctx context.Context) (int, error) {
	n, err := r.rdb.ZCard(ctx, r.timeIndex()).Result()
	if err != nil {
		return 0, constant.Wrap(constant.CodeRedisError, err, "len")
	}
	return int(n), nil
}
