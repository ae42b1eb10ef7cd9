package sqlstore

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// mysqlOpen builds the gorm.io/driver/mysql dialector for a DSN; Open
// calls it directly. A caller needing another dialector opens its own
// *gorm.DB and passes it to New.
func mysqlOpen(dsn string) gorm.Dialector {
	return mysql.Open(dsn)
}
