package postgresql

import (
	"fmt"
	"log"
	"runtime"

	"ifc-query-api/res/store"
	"ifc-query-api/res/store/migrate"

	sqlCommenter "github.com/gouyelliot/gorm-sqlcommenter-plugin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type storeImpl struct {
	db *gorm.DB

	userStore    *userStore
	sessionStore *sessionStore
	eventStore   *eventStore
}

func (sImpl *storeImpl) Users() store.UserStore {
	return sImpl.userStore
}

func (sImpl *storeImpl) Sessions() store.SessionStore {
	return sImpl.sessionStore
}

func (sImpl *storeImpl) Events() store.EventStore {
	return sImpl.eventStore
}

func (sImpl *storeImpl) GetDB() interface{} {
	return sImpl.db
}

func Connect(connectionUrl string) (*storeImpl, error) {
	db, err := gorm.Open(postgres.Open(connectionUrl), &gorm.Config{TranslateError: true, PrepareStmt: false})
	if err != nil {
		return nil, err
	}

	err = db.Use(sqlCommenter.New())
	if err != nil {
		return nil, err
	}

	err = decorateDBOperationsWithAdditionalInfo(db)
	if err != nil {
		return nil, err
	}

	return New(db), nil
}

// New wraps an already-open gorm connection. Production code goes through
// Connect; tests hand in an in-memory database here.
func New(db *gorm.DB) *storeImpl {
	s := &storeImpl{db: db}

	s.userStore = NewUserStore(s)
	s.sessionStore = NewSessionStore(s)
	s.eventStore = NewEventStore(s)

	return s
}

// Migrate brings the schema up to the latest registered version. It must
// run to completion before any other store operation; a failure here means
// the process must not serve traffic.
func (sImpl *storeImpl) Migrate(logger *log.Logger) error {
	if err := ensureBaseSchema(sImpl.db); err != nil {
		return fmt.Errorf("failed to ensure base schema: %w", err)
	}

	n, err := migrate.Apply(logger, sImpl.db, Migrations())
	if err != nil {
		return err
	}
	logger.Printf("%d database migrations applied.", n)

	return nil
}

// COMMON UTILITIES

func identifyCallee(stackDepth int) string {
	function, _, line, ok := runtime.Caller(stackDepth)
	if !ok {
		return "<missing-runtime-info>"
	}
	return fmt.Sprintf("%s:%d", runtime.FuncForPC(function).Name(), line)
}

func annotateWithInfoHook(db *gorm.DB) {
	info := identifyCallee(4) // Skip the internal gorm calls & the 2 local setup calls
	db.Clauses(sqlCommenter.NewTag("action", info))
}

func decorateDBOperationsWithAdditionalInfo(db *gorm.DB) error {
	return db.Callback().Query().Before("gorm:query").Register("store::annotate_with_info", annotateWithInfoHook)
}
