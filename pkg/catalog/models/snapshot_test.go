package models_test

import (
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/rgbdplay/pkg/catalog/models"
)

func TestSnapshotBeforeCreateAssignsUUID(t *testing.T) {
	is := is.New(t)
	snapshot := models.Snapshot{FileName: "00000.pcd"}
	is.NoErr(snapshot.BeforeCreate(nil))
	is.True(len(snapshot.UUID) > 0)

	previous := snapshot.UUID
	is.NoErr(snapshot.BeforeCreate(nil))
	is.True(snapshot.UUID != previous)
}
