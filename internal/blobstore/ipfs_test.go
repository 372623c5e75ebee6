package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/JasonRUAN/SecureFileShare/pkg/errorcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// fakeIPFSNode 实现 IPFS 节点 API 中的 add 与 cat，以内容的 SHA-256 作为 CID。
type fakeIPFSNode struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (n *fakeIPFSNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v0/add":
		reader, err := r.MultipartReader()
		if err != nil {
			writeIPFSError(w, err.Error())
			return
		}

		part, err := reader.NextPart()
		if err != nil {
			writeIPFSError(w, err.Error())
			return
		}

		data, err := ioutil.ReadAll(part)
		if err != nil {
			writeIPFSError(w, err.Error())
			return
		}

		cid := ContentID(data)
		n.mu.Lock()
		n.blobs[cid] = data
		n.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"Name": "", "Hash": cid, "Size": fmt.Sprint(len(data))})
	case "/api/v0/cat":
		n.mu.Lock()
		data, ok := n.blobs[r.URL.Query().Get("arg")]
		n.mu.Unlock()
		if !ok {
			writeIPFSError(w, "block not found locally")
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func writeIPFSError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"Message": msg, "Code": 0, "Type": "error"})
}

func newTestIPFSStore(t *testing.T) *IPFSStore {
	node := httptest.NewServer(&fakeIPFSNode{blobs: make(map[string][]byte)})
	t.Cleanup(node.Close)

	store, err := NewIPFSStore(&IPFSOptions{URL: node.URL})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	return store
}

func TestIPFSPutAndGet(t *testing.T) {
	store := newTestIPFSStore(t)

	id, err := store.Put(context.Background(), []byte("hello ipfs"))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, ContentID([]byte("hello ipfs")), id)

	data, err := store.Get(context.Background(), id)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, []byte("hello ipfs"), data)
}

func TestIPFSGetMissing(t *testing.T) {
	store := newTestIPFSStore(t)

	_, err := store.Get(context.Background(), "QmMissing")
	assert.Equal(t, errorcode.ErrorBlobNotFound, errors.Cause(err))
}

func TestIPFSUnreachable(t *testing.T) {
	node := httptest.NewServer(http.NotFoundHandler())
	url := node.URL
	node.Close()

	store, err := NewIPFSStore(&IPFSOptions{URL: url})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	_, err = store.Put(context.Background(), []byte("data"))
	assert.Equal(t, errorcode.ErrorStoreUnavailable, errors.Cause(err))
}

func TestIPFSConcurrentPuts(t *testing.T) {
	store := newTestIPFSStore(t)

	const count = 8
	ids := make([]string, count)
	errs := make([]error, count)

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = store.Put(context.Background(), []byte(fmt.Sprintf("blob %v", i)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < count; i++ {
		if isNoError := assert.NoError(t, errs[i]); !isNoError {
			t.FailNow()
		}

		data, err := store.Get(context.Background(), ids[i])
		if isNoError := assert.NoError(t, err); !isNoError {
			t.FailNow()
		}
		assert.Equal(t, []byte(fmt.Sprintf("blob %v", i)), data)
	}
}

func TestIPFSShellChoice(t *testing.T) {
	store := newTestIPFSStore(t)

	assert.Same(t, store.sh, store.shellFor(1024))
	assert.Same(t, store.shLarge, store.shellFor(largeBlobSize+1))
}
