package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/character-chat-backend/internal/generation"
	"github.com/tbourn/character-chat-backend/internal/http/middleware"
	"github.com/tbourn/character-chat-backend/internal/repo"
	"github.com/tbourn/character-chat-backend/internal/services"
)

// ---------- test DB + router ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// One connection serializes writers; shared-cache memory DBs do not wait
	// on locks.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	// Enforce FKs and migrate schemas
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type testEnv struct {
	r     *gin.Engine
	db    *gorm.DB
	store *repo.GormStore
}

// newTestEnv mounts the public routes over a real store and the echo
// generator, with the middleware the handlers rely on.
func newTestEnv(t *testing.T, gen services.Generator) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerDB(t)
	store := repo.NewGormStore(db)
	if gen == nil {
		gen = generation.Echo{}
	}
	h := New(services.NewCharacterService(store), services.NewChatService(store, gen))

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	r.POST("/create_character/", h.CreateCharacter)
	r.GET("/characters/:name", h.GetCharacter)
	r.GET("/test_db", h.TestDB)
	r.POST("/chat/", h.Chat)
	r.GET("/chat/:character1/:character2/messages", h.ListChatMessages)

	return &testEnv{r: r, db: db, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("json: %v; body=%s", err, w.Body.String())
	}
}

var (
	alice = gin.H{"name": "Alice", "personality": "Curious and cheerful", "hobbies": []string{"reading", "chess"}}
	bob   = gin.H{"name": "Bob", "personality": "Grumpy but kind-hearted", "hobbies": []string{"fishing"}}
)

func (e *testEnv) seed(t *testing.T, chars ...gin.H) {
	t.Helper()
	for _, c := range chars {
		if w := e.do(t, http.MethodPost, "/create_character/", c, nil); w.Code != http.StatusOK {
			t.Fatalf("seed %v: status=%d body=%s", c["name"], w.Code, w.Body.String())
		}
	}
}
