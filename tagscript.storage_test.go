package tagscript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// testTagStorage exercises the TagStorage contract shared by every driver.
func testTagStorage(t *testing.T, open func(t *testing.T) TagStorage) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		storage := open(t)
		tag := &StoredTag{
			Name:        "greet",
			Content:     "Hello {user}!",
			Description: "greets the caller",
			Metadata:    map[string]string{"lang": "en"},
			Author:      "ada",
			TenantID:    "t1",
		}
		require.NoError(t, storage.Save(ctx, tag))
		assert.False(t, tag.CreatedAt.IsZero())
		assert.False(t, tag.UpdatedAt.IsZero())

		got, err := storage.Get(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, "Hello {user}!", got.Content)
		assert.Equal(t, "greets the caller", got.Description)
		assert.Equal(t, map[string]string{"lang": "en"}, got.Metadata)
		assert.Equal(t, "ada", got.Author)
		assert.Equal(t, "t1", got.TenantID)
	})

	t.Run("save replaces and keeps creation time", func(t *testing.T) {
		storage := open(t)
		first := &StoredTag{Name: "t", Content: "v1"}
		require.NoError(t, storage.Save(ctx, first))

		second := &StoredTag{Name: "t", Content: "v2"}
		require.NoError(t, storage.Save(ctx, second))
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

		got, err := storage.Get(ctx, "t")
		require.NoError(t, err)
		assert.Equal(t, "v2", got.Content)
	})

	t.Run("returned tags are copies", func(t *testing.T) {
		storage := open(t)
		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "c", Content: "x", Metadata: map[string]string{"k": "v"}}))

		got, err := storage.Get(ctx, "c")
		require.NoError(t, err)
		got.Content = "changed"
		got.Metadata["k"] = "changed"

		again, err := storage.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "x", again.Content)
		assert.Equal(t, "v", again.Metadata["k"])
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := open(t).Get(ctx, "missing")
		require.Error(t, err)
		assert.True(t, IsTagNotFound(err))
	})

	t.Run("invalid names are rejected", func(t *testing.T) {
		storage := open(t)
		for _, name := range []string{"", "a/b", ".hidden", " padded", "x{y}"} {
			err := storage.Save(ctx, &StoredTag{Name: name, Content: "x"})
			var storageErr *StorageError
			assert.True(t, errors.As(err, &storageErr), "name %q", name)
		}
		assert.Error(t, storage.Save(ctx, nil))
	})

	t.Run("delete", func(t *testing.T) {
		storage := open(t)
		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "d", Content: "x"}))
		require.NoError(t, storage.Delete(ctx, "d"))

		exists, err := storage.Exists(ctx, "d")
		require.NoError(t, err)
		assert.False(t, exists)

		assert.True(t, IsTagNotFound(storage.Delete(ctx, "d")))
	})

	t.Run("exists", func(t *testing.T) {
		storage := open(t)
		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "e", Content: "x"}))

		exists, err := storage.Exists(ctx, "e")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = storage.Exists(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list filters and paginates", func(t *testing.T) {
		storage := open(t)
		tags := []*StoredTag{
			{Name: "greet-en", Content: "x", Author: "ada", TenantID: "t1"},
			{Name: "greet-fr", Content: "x", Author: "bob", TenantID: "t1"},
			{Name: "roll", Content: "x", Author: "ada", TenantID: "t2"},
			{Name: "my-greet", Content: "x", Author: "ada", TenantID: "t2"},
		}
		for _, tag := range tags {
			require.NoError(t, storage.Save(ctx, tag))
		}

		names := func(query *TagQuery) []string {
			t.Helper()
			result, err := storage.List(ctx, query)
			require.NoError(t, err)
			out := make([]string, 0, len(result))
			for _, tag := range result {
				out = append(out, tag.Name)
			}
			return out
		}

		assert.Equal(t, []string{"greet-en", "greet-fr", "my-greet", "roll"}, names(nil))
		assert.Equal(t, []string{"greet-en", "greet-fr"}, names(&TagQuery{TenantID: "t1"}))
		assert.Equal(t, []string{"greet-en", "my-greet", "roll"}, names(&TagQuery{Author: "ada"}))
		assert.Equal(t, []string{"greet-en", "greet-fr"}, names(&TagQuery{NamePrefix: "greet"}))
		assert.Equal(t, []string{"greet-en", "greet-fr", "my-greet"}, names(&TagQuery{NameContains: "greet"}))
		assert.Equal(t, []string{"greet-fr", "my-greet"}, names(&TagQuery{Offset: 1, Limit: 2}))
		assert.Empty(t, names(&TagQuery{Offset: 10}))
	})

	t.Run("record use", func(t *testing.T) {
		storage := open(t)
		recorder, ok := storage.(UseRecorder)
		require.True(t, ok)

		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "u", Content: "x"}))
		require.NoError(t, recorder.RecordUse(ctx, "u"))
		require.NoError(t, recorder.RecordUse(ctx, "u"))

		got, err := storage.Get(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Uses)

		tag := &StoredTag{Name: "u", Content: "y", Uses: 99}
		require.NoError(t, storage.Save(ctx, tag))
		assert.Equal(t, int64(2), tag.Uses, "save keeps the stored count")

		assert.True(t, IsTagNotFound(recorder.RecordUse(ctx, "missing")))
	})

	t.Run("cancelled context", func(t *testing.T) {
		storage := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := storage.Get(cctx, "x")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("closed storage", func(t *testing.T) {
		storage := open(t)
		require.NoError(t, storage.Close())

		_, err := storage.Get(ctx, "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgStorageClosed)

		err = storage.Save(ctx, &StoredTag{Name: "x", Content: "x"})
		assert.Contains(t, err.Error(), ErrMsgStorageClosed)
	})

	t.Run("concurrent saves", func(t *testing.T) {
		storage := open(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, storage.Save(ctx, &StoredTag{Name: "shared", Content: "x"}))
			}()
		}
		wg.Wait()

		exists, err := storage.Exists(ctx, "shared")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestMemoryStorage(t *testing.T) {
	testTagStorage(t, func(*testing.T) TagStorage {
		return NewMemoryStorage()
	})
}

func TestFilesystemStorage(t *testing.T) {
	testTagStorage(t, func(t *testing.T) TagStorage {
		storage, err := NewFilesystemStorage(t.TempDir())
		require.NoError(t, err)
		return storage
	})
}

func TestFilesystemStorage_Layout(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "nested", "tags")

	storage, err := NewFilesystemStorage(root)
	require.NoError(t, err)
	assert.Equal(t, root, storage.Root())

	require.NoError(t, storage.Save(ctx, &StoredTag{Name: "greet", Content: "Hello"}))

	data, err := os.ReadFile(filepath.Join(root, "greet.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "content: Hello")

	t.Run("foreign files are ignored", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(root, "sub.yaml"), 0o755))

		tags, err := storage.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "greet", tags[0].Name)
	})

	t.Run("hand-written file", func(t *testing.T) {
		content := "content: \"{if({n}==1):one|many}\"\nauthor: ops\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, "count.yaml"), []byte(content), 0o644))

		tag, err := storage.Get(ctx, "count")
		require.NoError(t, err)
		assert.Equal(t, "count", tag.Name)
		assert.Equal(t, "ops", tag.Author)
		assert.Equal(t, "{if({n}==1):one|many}", tag.Content)
	})

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "bad.yaml"), []byte("content: [unclosed"), 0o644))
		_, err := storage.Get(ctx, "bad")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgFilesystemDecode)
	})

	t.Run("empty root", func(t *testing.T) {
		_, err := NewFilesystemStorage("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgFilesystemEmptyRoot)
	})
}

func TestValidateTagName(t *testing.T) {
	valid := []string{"greet", "greet-en", "roll_d20", "Ünïcode", strings.Repeat("a", FilesystemNameMaxBytes)}
	for _, name := range valid {
		assert.NoError(t, ValidateTagName(name), name)
	}

	invalid := []string{"", ".x", "a/b", `a\b`, "a:b", "a*", "a?", `a"b`, "a<b", "a>b", "a|b", "{a}", "a\x00", " a", "a ", strings.Repeat("a", FilesystemNameMaxBytes+1)}
	for _, name := range invalid {
		assert.Error(t, ValidateTagName(name), name)
	}
}

func TestStorageDriverRegistry(t *testing.T) {
	drivers := ListStorageDrivers()
	assert.Contains(t, drivers, StorageDriverNameMemory)
	assert.Contains(t, drivers, StorageDriverNameFilesystem)
	assert.Contains(t, drivers, StorageDriverNamePostgres)

	t.Run("open memory", func(t *testing.T) {
		storage, err := OpenStorage(StorageDriverNameMemory, "")
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, storage)
	})

	t.Run("open filesystem", func(t *testing.T) {
		storage, err := OpenStorage(StorageDriverNameFilesystem, t.TempDir())
		require.NoError(t, err)
		assert.IsType(t, &FilesystemStorage{}, storage)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenStorage("nope", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgStorageDriverNotFound)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() {
			RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{})
		})
	})

	t.Run("nil driver panics", func(t *testing.T) {
		assert.Panics(t, func() { RegisterStorageDriver("nil-driver", nil) })
	})
}

func TestStorageError(t *testing.T) {
	cause := errors.New("boom")
	err := &StorageError{Message: ErrMsgFilesystemIO, Name: "greet", Cause: cause}
	assert.Equal(t, ErrMsgFilesystemIO+": greet: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

// failingRecorder counts uses with an error.
type failingRecorder struct {
	*MemoryStorage
}

func (s *failingRecorder) RecordUse(context.Context, string) error {
	return errors.New("counter offline")
}

func TestInterpreter_ProcessStored(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(ctx, &StoredTag{
		Name:    "greet",
		Content: "{tag}: Hello {user}!",
	}))

	t.Run("processes content", func(t *testing.T) {
		resp, err := MustNew().ProcessStored(ctx, storage, "greet", StringVariables(map[string]string{"user": "ada"}))
		require.NoError(t, err)
		assert.Equal(t, "greet: Hello ada!", resp.Body)

		tag, err := storage.Get(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, int64(1), tag.Uses)
	})

	t.Run("seed overrides tag variable", func(t *testing.T) {
		resp, err := MustNew().ProcessStored(ctx, storage, "greet", StringVariables(map[string]string{"tag": "x", "user": "bob"}))
		require.NoError(t, err)
		assert.Equal(t, "x: Hello bob!", resp.Body)
	})

	t.Run("cooldown is namespaced by tag name", func(t *testing.T) {
		require.NoError(t, storage.Save(ctx, &StoredTag{Name: "limited", Content: "{cooldown(1,60):all}ok"}))
		interp := MustNew()

		_, err := interp.ProcessStored(ctx, storage, "limited", nil)
		require.NoError(t, err)
		_, err = interp.ProcessStored(ctx, storage, "limited", nil)
		assert.True(t, IsCooldownExceeded(err))

		_, err = interp.Process(ctx, "{cooldown(1,60):all}ok", nil, WithCooldownKey("other"))
		assert.NoError(t, err)
	})

	t.Run("missing tag", func(t *testing.T) {
		_, err := MustNew().ProcessStored(ctx, storage, "missing", nil)
		assert.True(t, IsTagNotFound(err))
	})

	t.Run("nil storage", func(t *testing.T) {
		_, err := MustNew().ProcessStored(ctx, nil, "greet", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgNilStorage)
	})

	t.Run("record failure is only logged", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		interp := MustNew(WithLogger(zap.New(core)))

		resp, err := interp.ProcessStored(ctx, &failingRecorder{storage}, "greet", StringVariables(map[string]string{"user": "c"}))
		require.NoError(t, err)
		assert.Equal(t, "greet: Hello c!", resp.Body)
		assert.Equal(t, 1, logs.FilterMessage(LogMsgRecordUseFailed).Len())
	})
}
