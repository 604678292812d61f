package repos

import (
	"github.com/tauraamui/rgbdplay/pkg/catalog/models"
	"github.com/tauraamui/xerror"
)

type SnapshotRepository struct {
	DB GormWrapper
}

func (r *SnapshotRepository) Create(snapshot *models.Snapshot) error {
	return r.DB.Create(snapshot).Error()
}

// FindBySession returns the session's snapshots in frame order.
func (r *SnapshotRepository) FindBySession(session string) ([]models.Snapshot, error) {
	snapshots := []models.Snapshot{}
	if err := r.DB.Where("session = ?", session).Order("frame_index").Find(&snapshots).Error(); err != nil {
		return nil, xerror.Errorf("snapshots of session %s not found: %w", session, err)
	}

	return snapshots, nil
}
