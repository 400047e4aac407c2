package timeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/safegergis/tome/services/user-data-service/internal/core/domain"
)

// RedisTimelineRepo matérialise le fil d'activité de chaque utilisateur dans
// un sorted set Redis (score = timestamp). C'est un cache : la vérité reste
// en SQL, un set vide ou un Redis down déclenchent le fallback d'agrégation.
type RedisTimelineRepo struct {
	client *redis.Client
	ttl    time.Duration // on ne garde pas l'infini en RAM
}

// maxTimelineSize : capping par timeline pour borner la mémoire.
const maxTimelineSize = 500

func NewRedisTimelineRepo(client *redis.Client) *RedisTimelineRepo {
	return &RedisTimelineRepo{
		client: client,
		ttl:    30 * 24 * time.Hour,
	}
}

func timelineKey(userID int64) string {
	return fmt.Sprintf("timeline:%d", userID)
}

// Format du membre : "TYPE:USER_ID:REF_ID" où REF_ID est le livre pour les
// sessions/fins de lecture, la liste pour les créations de liste.
func encodeMember(item *domain.ActivityItem) string {
	refID := item.BookID
	if item.Type == domain.ActivityListCreated {
		refID = item.ListID
	}
	return fmt.Sprintf("%s:%d:%d", item.Type, item.UserID, refID)
}

func decodeMember(member string, occurredAt time.Time) (*domain.ActivityItem, bool) {
	parts := strings.Split(member, ":")
	if len(parts) != 3 {
		return nil, false
	}

	userID, err1 := strconv.ParseInt(parts[1], 10, 64)
	refID, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}

	item := &domain.ActivityItem{
		ID:         uuid.NewString(),
		Type:       domain.ActivityType(parts[0]),
		UserID:     userID,
		OccurredAt: occurredAt,
	}
	if item.Type == domain.ActivityListCreated {
		item.ListID = refID
	} else {
		item.BookID = refID
	}
	return item, true
}

// AddToTimelines : fan-out en pipeline vers la timeline de chaque ami.
func (r *RedisTimelineRepo) AddToTimelines(ctx context.Context, userIDs []int64, item *domain.ActivityItem) error {
	pipe := r.client.Pipeline()

	member := encodeMember(item)
	score := float64(item.OccurredAt.Unix())

	for _, uid := range userIDs {
		key := timelineKey(uid)

		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
		// Capping : on ne garde que les N plus récents
		pipe.ZRemRangeByRank(ctx, key, 0, -(maxTimelineSize + 1))
		pipe.Expire(ctx, key, r.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisTimelineRepo) GetTimeline(ctx context.Context, userID int64, limit, offset int) ([]*domain.ActivityItem, error) {
	key := timelineKey(userID)

	start := int64(offset)
	stop := int64(offset + limit - 1)

	results, err := r.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}

	items := make([]*domain.ActivityItem, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		item, ok := decodeMember(member, time.Unix(int64(z.Score), 0).UTC())
		if !ok {
			continue // donnée corrompue, on passe
		}
		items = append(items, item)
	}
	return items, nil
}
