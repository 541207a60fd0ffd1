package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	seatHoldPrefix  = "seat_hold:"
	webhookPrefix   = "webhook_event:"
	defaultHoldTTL  = 30 * time.Second
	defaultDedupTTL = 48 * time.Hour
)

// releaseScript deletes a hold only when it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis keeps short-lived seat holds and remembers processed webhook
// events. Neither is authoritative; the database constraints are.
type Redis struct {
	Client   *redis.Client
	HoldTTL  time.Duration
	DedupTTL time.Duration
}

func NewRedis(client *redis.Client, holdTTL, dedupTTL time.Duration) *Redis {
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	if dedupTTL <= 0 {
		dedupTTL = defaultDedupTTL
	}
	return &Redis{Client: client, HoldTTL: holdTTL, DedupTTL: dedupTTL}
}

func seatKey(departureID, seatID string) string {
	return fmt.Sprintf("%s%s:%s", seatHoldPrefix, departureID, seatID)
}

// HoldSeat sets the hold for one seat if nobody else holds it.
func (r *Redis) HoldSeat(ctx context.Context, departureID, seatID, owner string) (bool, error) {
	return r.Client.SetNX(ctx, seatKey(departureID, seatID), owner, r.HoldTTL).Result()
}

func (r *Redis) ReleaseSeat(ctx context.Context, departureID, seatID, owner string) error {
	err := releaseScript.Run(ctx, r.Client, []string{seatKey(departureID, seatID)}, owner).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// HoldSeats holds every seat or none. When some seats are already held by
// someone else it releases its own holds and returns all of the taken seats.
// A failed release of its own holds comes back wrapped alongside them.
func (r *Redis) HoldSeats(ctx context.Context, departureID string, seatIDs []string, owner string) ([]string, error) {
	held := make([]string, 0, len(seatIDs))
	var taken []string
	for _, seatID := range seatIDs {
		ok, err := r.HoldSeat(ctx, departureID, seatID, owner)
		if err != nil {
			holdErr := fmt.Errorf("hold seat %s: %w", seatID, err)
			if relErr := r.ReleaseSeats(ctx, departureID, held, owner); relErr != nil {
				holdErr = errors.Join(holdErr, fmt.Errorf("release partial hold: %w", relErr))
			}
			return nil, holdErr
		}
		if !ok {
			taken = append(taken, seatID)
			continue
		}
		held = append(held, seatID)
	}
	if len(taken) == 0 {
		return nil, nil
	}
	if err := r.ReleaseSeats(ctx, departureID, held, owner); err != nil {
		return taken, fmt.Errorf("release partial hold: %w", err)
	}
	return taken, nil
}

func (r *Redis) ReleaseSeats(ctx context.Context, departureID string, seatIDs []string, owner string) error {
	var firstErr error
	for _, seatID := range seatIDs {
		if err := r.ReleaseSeat(ctx, departureID, seatID, owner); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SeenEvent reports whether a provider event id was already processed.
func (r *Redis) SeenEvent(ctx context.Context, eventID string) (bool, error) {
	n, err := r.Client.Exists(ctx, webhookPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RememberEvent records a processed provider event id.
func (r *Redis) RememberEvent(ctx context.Context, eventID string) error {
	return r.Client.Set(ctx, webhookPrefix+eventID, time.Now().Unix(), r.DedupTTL).Err()
}
