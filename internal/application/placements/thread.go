package placements

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"showroom-backend/internal/domain"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Key addresses a negotiation thread: the product owner and the hosting showroom.
type Key struct {
	BrandID    uuid.UUID `json:"brand_id"`
	ShowroomID uuid.UUID `json:"showroom_id"`
}

func (k Key) account(side domain.Side) uuid.UUID {
	if side == domain.SideBrand {
		return k.BrandID
	}
	return k.ShowroomID
}

// Thread is the read view of the pending lines for a key.
// ThreadID is the earliest pending line and is uuid.Nil when nothing is pending.
type Thread struct {
	ThreadID     uuid.UUID          `json:"thread_id"`
	BrandID      uuid.UUID          `json:"brand_id"`
	ShowroomID   uuid.UUID          `json:"showroom_id"`
	InitiatedBy  domain.Side        `json:"initiated_by,omitempty"`
	AwaitingSide domain.Side        `json:"awaiting_side,omitempty"`
	Revision     string             `json:"revision"`
	Lines        []domain.Placement `json:"lines"`
}

func newThread(key Key, lines []domain.Placement) *Thread {
	t := &Thread{
		BrandID:    key.BrandID,
		ShowroomID: key.ShowroomID,
		Revision:   Revision(lines),
		Lines:      lines,
	}
	if t.Lines == nil {
		t.Lines = []domain.Placement{}
	}
	if len(lines) > 0 {
		t.ThreadID = lines[0].ID
		t.InitiatedBy = lines[0].InitiatedBy
		t.AwaitingSide = lines[0].InitiatedBy.Other()
	}
	return t
}

// Revision fingerprints a pending set by its (id, version) pairs. Any insert,
// delete or update of a pending line changes it.
func Revision(lines []domain.Placement) string {
	pairs := make([]string, 0, len(lines))
	for _, l := range lines {
		pairs = append(pairs, l.ID.String()+":"+strconv.Itoa(l.Version))
	}
	sort.Strings(pairs)
	h := xxhash.New()
	for _, p := range pairs {
		_, _ = h.WriteString(p)
		_, _ = h.WriteString(";")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

const brandProducts = `product_id IN (SELECT id FROM "Products" WHERE brand_id = ?)`

// pendingLines loads a thread's pending lines, oldest first.
// lockThread takes the showroom row lock that every write to the showroom's
// threads goes through, so the pending set read next cannot change until commit.
// SQLite has a single writer and no FOR UPDATE.
func lockThread(tx *gorm.DB, key Key) error {
	q := tx.Model(&domain.Showroom{}).Select("id").Where("id = ?", key.ShowroomID)
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sh domain.Showroom
	if err := q.Take(&sh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: showroom", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

func pendingLines(db *gorm.DB, key Key) ([]domain.Placement, error) {
	var lines []domain.Placement
	err := db.
		Where("showroom_id = ? AND status = ?", key.ShowroomID, domain.PlacementPending).
		Where(brandProducts, key.BrandID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}
