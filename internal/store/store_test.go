package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pbaille/fefe/internal/domain"
	"github.com/pbaille/fefe/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMonth() []domain.Article {
	return []domain.Article{
		{ID: "https://blog.fefe.de/?ts=def", PublishedAt: 1640995200000, Body: "Merkel sagt nichts Neues."},
		{ID: "https://blog.fefe.de/?ts=abc", PublishedAt: 1640995200000, Body: "Bitcoin crasht wieder."},
	}
}

func TestCorpus_AppendMonthIsIdempotent(t *testing.T) {
	t.Parallel()

	c := store.NewCorpus()
	key := domain.NewMonthKey(2022, 1)

	added, skipped := c.AppendMonth(key, sampleMonth())
	assert.True(t, added)
	assert.Zero(t, skipped)

	added, _ = c.AppendMonth(key, sampleMonth())
	assert.False(t, added)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []domain.MonthKey{"202201"}, c.Months())
	assert.True(t, c.HasMonth(key))
	assert.False(t, c.HasMonth(domain.NewMonthKey(2022, 2)))
}

func TestCorpus_SkipsKnownIDsAcrossMonths(t *testing.T) {
	t.Parallel()

	c := store.NewCorpus()
	c.AppendMonth("202201", sampleMonth())

	_, skipped := c.AppendMonth("202202", []domain.Article{
		{ID: "https://blog.fefe.de/?ts=abc", Body: "dup"},
		{ID: "https://blog.fefe.de/?ts=new", Body: "neu"},
	})

	assert.Equal(t, 1, skipped)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, "https://blog.fefe.de/?ts=new", c.Article(2).ID)
	assert.Equal(t, "Bitcoin crasht wieder.", c.Article(1).Body)
}

func TestCorpus_ArticlesReturnsCopy(t *testing.T) {
	t.Parallel()

	c := store.NewCorpus()
	c.AppendMonth("202201", sampleMonth())

	articles := c.Articles()
	articles[0].Body = "changed"

	assert.Equal(t, "Merkel sagt nichts Neues.", c.Article(0).Body)
}

func TestCorpus_TimelineSortsByPublishedAt(t *testing.T) {
	t.Parallel()

	c := store.NewCorpus()
	c.AppendMonth("202203", []domain.Article{{ID: "march", PublishedAt: 300}})
	c.AppendMonth("202201", []domain.Article{{ID: "jan-a", PublishedAt: 100}, {ID: "jan-b", PublishedAt: 100}})

	var ids []string
	for _, a := range c.Timeline() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"jan-a", "jan-b", "march"}, ids)
	assert.Equal(t, "march", c.Article(0).ID)
}

func TestFromSnapshot_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := store.FromSnapshot(&store.Snapshot{Months: []domain.MonthKey{"202201", "202201"}})
	assert.True(t, errors.Is(err, store.ErrSnapshotCorrupt))

	_, err = store.FromSnapshot(&store.Snapshot{Articles: []domain.Article{{ID: "a"}, {ID: "a"}}})
	assert.True(t, errors.Is(err, store.ErrSnapshotCorrupt))

	_, err = store.FromSnapshot(&store.Snapshot{Months: []domain.MonthKey{"2022-1"}})
	assert.True(t, errors.Is(err, store.ErrSnapshotCorrupt))
}

func TestStore_LoadMissingSnapshotIsEmpty(t *testing.T) {
	t.Parallel()

	s := store.New(store.NewJSONFile(filepath.Join(t.TempDir(), "data", "data.json")), "", nil)
	require.NoError(t, s.Load())
	assert.Zero(t, s.Corpus().Len())
	assert.Empty(t, s.Corpus().Months())
}

func TestStore_LoadCorruptSnapshotFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"articles": [`), 0644))

	s := store.New(store.NewJSONFile(path), "", nil)
	err := s.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrSnapshotCorrupt))
}

func TestStore_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backend := store.NewJSONFile(filepath.Join(dir, "data", "data.json"))
	exportPath := filepath.Join(dir, "data", "data.jsonl")

	s := store.New(backend, exportPath, nil)
	s.AppendMonth("202201", sampleMonth())
	s.Corpus().SetTags(0, domain.Tags{"politics"})
	s.Corpus().SetTags(1, domain.Tags{"crypto"})
	require.NoError(t, s.Persist())

	// Persist is idempotent
	first, err := os.ReadFile(backend.Path)
	require.NoError(t, err)
	require.NoError(t, s.Persist())
	second, err := os.ReadFile(backend.Path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	loaded := store.New(backend, "", nil)
	require.NoError(t, loaded.Load())

	assert.Equal(t, s.Corpus().Articles(), loaded.Corpus().Articles())
	assert.Equal(t, s.Corpus().Months(), loaded.Corpus().Months())
	assert.True(t, loaded.HasMonth("202201"))

	_, err = os.Stat(exportPath)
	assert.NoError(t, err)
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Read()
	assert.True(t, errors.Is(err, store.ErrSnapshotMissing))

	s := store.New(db, "", nil)
	s.AppendMonth("202201", sampleMonth())
	s.AppendMonth("202202", []domain.Article{{ID: "https://blog.fefe.de/?ts=feb", PublishedAt: 1643673600000, Body: "Februar."}})
	s.Corpus().SetTags(0, domain.Tags{"politics"})
	require.NoError(t, s.Persist())

	// A second write replaces rather than appends
	require.NoError(t, s.Persist())

	loaded := store.New(db, "", nil)
	require.NoError(t, loaded.Load())

	require.Equal(t, 3, loaded.Corpus().Len())
	assert.Equal(t, s.Corpus().Articles(), loaded.Corpus().Articles())
	assert.Equal(t, []domain.MonthKey{"202201", "202202"}, loaded.Corpus().Months())
	assert.Nil(t, loaded.Corpus().Article(1).Tags)
}

func TestWriteTrainingJSONL(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{ID: "a", Body: "Bitcoin crasht wieder.", Tags: domain.Tags{"crypto"}},
		{ID: "b", Body: "Nichts <hier>.", Tags: domain.Tags{"politics", "usa"}},
	}

	var buf bytes.Buffer
	require.NoError(t, store.WriteTrainingJSONL(&buf, articles))

	want := `{"prompt":"crypto\n\n###\n\n","completion":" Bitcoin crasht wieder.<<END>>"}` + "\n" +
		`{"prompt":"politics usa\n\n###\n\n","completion":" Nichts <hier>.<<END>>"}` + "\n"
	assert.Equal(t, want, buf.String())
}
