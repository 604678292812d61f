package catalog

import "gorm.io/gorm"

func OverloadOpenDBConnection(overload func(string) (*gorm.DB, error)) func() {
	openDBConnectionRef := openDBConnection
	openDBConnection = overload
	return func() { openDBConnection = openDBConnectionRef }
}

func OverloadAutoMigrate(overload func(*gorm.DB) error) func() {
	autoMigrateRef := autoMigrate
	autoMigrate = overload
	return func() { autoMigrate = autoMigrateRef }
}
