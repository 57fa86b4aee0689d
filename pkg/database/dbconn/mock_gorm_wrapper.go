package dbconn

import (
	"reflect"
	"sync"

	"github.com/tauraamui/xerror"
	"gorm.io/gorm"
)

// MockGormWrapper records every write and query made through it and answers
// reads from results registered by type.
type MockGormWrapper interface {
	GormWrapper
	Created() []interface{}
	Saved() []interface{}
	Queries() []Query
	LastQuery() Query
	SetError(error) MockGormWrapper
	SetResult(interface{}) MockGormWrapper
}

// Query is one finished read, built up by the chained calls before it.
type Query struct {
	Where string
	Args  []interface{}
	Order interface{}
	Limit int
	Conds []interface{}
	By    string
}

type mockGormWrapper struct {
	mu      sync.Mutex
	err     error
	lastErr error
	created []interface{}
	saved   []interface{}
	pending *Query
	queries []Query
	results map[reflect.Type]reflect.Value
}

func Mock() MockGormWrapper {
	return &mockGormWrapper{results: map[reflect.Type]reflect.Value{}}
}

func (w *mockGormWrapper) Created() []interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.created
}

func (w *mockGormWrapper) Saved() []interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saved
}

func (w *mockGormWrapper) Queries() []Query {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Query(nil), w.queries...)
}

// LastQuery is the zero Query until a read has finished.
func (w *mockGormWrapper) LastQuery() Query {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queries) == 0 {
		return Query{}
	}
	return w.queries[len(w.queries)-1]
}

// SetError makes every following call fail with e.
func (w *mockGormWrapper) SetError(e error) MockGormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = e
	return w
}

// SetResult registers r as the answer to reads into a destination of r's type.
func (w *mockGormWrapper) SetResult(r interface{}) MockGormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := reflect.Indirect(reflect.ValueOf(r))
	if v.IsValid() {
		w.results[v.Type()] = v
	}
	return w
}

func (w *mockGormWrapper) Error() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	return w.lastErr
}

func (w *mockGormWrapper) AutoMigrate(...interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *mockGormWrapper) Create(value interface{}) GormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = nil
	if w.err == nil {
		w.created = append(w.created, value)
	}
	return w
}

func (w *mockGormWrapper) Save(value interface{}) GormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = nil
	if w.err == nil {
		w.saved = append(w.saved, value)
	}
	return w
}

func (w *mockGormWrapper) Where(query interface{}, args ...interface{}) GormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = nil
	where, _ := query.(string)
	w.pending = &Query{Where: where, Args: args}
	return w
}

func (w *mockGormWrapper) Order(value interface{}) GormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.begin().Order = value
	return w
}

func (w *mockGormWrapper) Limit(limit int) GormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.begin().Limit = limit
	return w
}

// First behaves like gorm, failing with gorm.ErrRecordNotFound when no
// result of dest's type is registered.
func (w *mockGormWrapper) First(dest interface{}, conds ...interface{}) GormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		w.lastErr = xerror.New("first called without a query")
		return w
	}
	w.finish("first", conds)
	found, err := w.fill(dest)
	if err == nil && !found {
		err = gorm.ErrRecordNotFound
	}
	w.lastErr = err
	return w
}

// Find leaves dest untouched when no result of its type is registered.
func (w *mockGormWrapper) Find(dest interface{}, conds ...interface{}) GormWrapper {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.begin()
	w.finish("find", conds)
	_, err := w.fill(dest)
	w.lastErr = err
	return w
}

func (w *mockGormWrapper) begin() *Query {
	if w.pending == nil {
		w.lastErr = nil
		w.pending = &Query{}
	}
	return w.pending
}

func (w *mockGormWrapper) finish(by string, conds []interface{}) {
	w.pending.By, w.pending.Conds = by, conds
	w.queries = append(w.queries, *w.pending)
	w.pending = nil
}

func (w *mockGormWrapper) fill(dest interface{}) (bool, error) {
	ptr := reflect.ValueOf(dest)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return false, xerror.Errorf("destination must be a non nil pointer, got %T", dest)
	}
	result, ok := w.results[ptr.Elem().Type()]
	if !ok {
		return false, nil
	}
	ptr.Elem().Set(result)
	return true, nil
}
