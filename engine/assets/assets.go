package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-forward/engine/assets/loaders"
	"github.com/spaghettifunk/anima-forward/engine/core"
	"github.com/spaghettifunk/anima-forward/engine/math"
)

type AssetType int

const (
	ASSET_TYPE_NONE AssetType = iota
	ASSET_TYPE_SHADER
	ASSET_TYPE_IMAGE
	ASSET_TYPE_MODEL
	ASSET_TYPE_MATERIAL
)

// Changes beyond this many between two drains are dropped and logged.
const CHANGE_QUEUE_SIZE = 64

type Asset struct {
	ID         uuid.UUID
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

/**
 * @brief Indexes the files under an asset root and, when watching, reports
 * files that change on disk. The watcher goroutine only queues paths; the
 * render thread picks them up with Drain or DispatchChanges between frames.
 */
type AssetManager struct {
	root   string
	assets map[string]*Asset
	mutex  sync.RWMutex

	fsnotify *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	stopped  sync.WaitGroup
	isClosed bool
}

func NewAssetManager(root string, watch bool) (*AssetManager, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("asset root is not a directory: " + root)
	}
	am := &AssetManager{
		root:    root,
		assets:  make(map[string]*Asset),
		changes: make(chan string, CHANGE_QUEUE_SIZE),
		done:    make(chan struct{}),
	}
	if !watch {
		return am, am.watchRecursive(root)
	}

	am.fsnotify, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := am.watchRecursive(root); err != nil {
		am.fsnotify.Close()
		return nil, err
	}
	am.stopped.Add(1)
	go am.start()
	core.LogDebug("Watching assets under %s.", root)
	return am, nil
}

func (am *AssetManager) Root() string { return am.root }

// Path resolves a path relative to the asset root.
func (am *AssetManager) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(am.root, name)
}

// Lookup finds an indexed asset by path relative to the root.
func (am *AssetManager) Lookup(name string) (*Asset, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	a, ok := am.assets[filepath.ToSlash(filepath.Clean(name))]
	return a, ok
}

// Assets lists indexed assets of one type, sorted by path.
func (am *AssetManager) Assets(assetType AssetType) []*Asset {
	am.mutex.RLock()
	out := make([]*Asset, 0, len(am.assets))
	for _, a := range am.assets {
		if a.Type == assetType {
			out = append(out, a)
		}
	}
	am.mutex.RUnlock()
	slices.SortFunc(out, func(a, b *Asset) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func (am *AssetManager) LoadShader(name string) ([]byte, error) {
	data, err := loaders.LoadShader(am.Path(name))
	am.touch(name)
	return data, err
}

func (am *AssetManager) LoadImage(name string, channels int) (*loaders.Image, error) {
	img, err := loaders.LoadImage(am.Path(name), channels)
	am.touch(name)
	return img, err
}

func (am *AssetManager) LoadOBJ(name string) ([]math.Vertex, []uint32, error) {
	vertices, indices, err := loaders.LoadOBJ(am.Path(name))
	am.touch(name)
	return vertices, indices, err
}

func (am *AssetManager) LoadMaterial(name string) (*loaders.MaterialDescription, error) {
	desc, err := loaders.LoadMaterialDescription(am.Path(name))
	am.touch(name)
	return desc, err
}

func (am *AssetManager) touch(name string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if a, ok := am.assets[am.relative(am.Path(name))]; ok {
		a.LastLoaded = time.Now()
	}
}

// Drain returns the distinct paths changed since the last call, sorted. It
// never blocks.
func (am *AssetManager) Drain() []string {
	seen := make(map[string]struct{})
	for {
		select {
		case p := <-am.changes:
			seen[p] = struct{}{}
		default:
			out := make([]string, 0, len(seen))
			for p := range seen {
				out = append(out, p)
			}
			slices.Sort(out)
			return out
		}
	}
}

// DispatchChanges fires EVENT_CODE_ASSET_CHANGED for every drained path.
// Call it from the render thread.
func (am *AssetManager) DispatchChanges() int {
	changed := am.Drain()
	for _, p := range changed {
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_ASSET_CHANGED,
			Data: &core.AssetEvent{Path: p},
		})
	}
	return len(changed)
}

func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.stopped.Wait()
	return nil
}

func (am *AssetManager) start() {
	defer am.stopped.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("asset watcher: %s", err)
			}
			return
		}
	}
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
		return
	}
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if am.handleFileEvent(e.Name) {
			am.post(e.Name)
		}
	}
}

func (am *AssetManager) post(path string) {
	select {
	case am.changes <- path:
	default:
		core.LogWarn("asset change queue full, dropping %s", path)
	}
}

// watchRecursive indexes every file under path and, when watching, adds
// every directory to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if am.fsnotify != nil {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes a created or modified file and reports whether it
// is a known asset type.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == ASSET_TYPE_NONE {
		return false
	}
	rel := am.relative(path)
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if _, ok := am.assets[rel]; !ok {
		am.assets[rel] = &Asset{ID: uuid.New(), Path: rel, Type: assetType}
	}
	return true
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, am.relative(path))
}

func (am *AssetManager) relative(path string) string {
	if rel, err := filepath.Rel(am.root, path); err == nil {
		path = rel
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func determineAssetType(path string) AssetType {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, loaders.MATERIAL_FILE_SUFFIX) {
		return ASSET_TYPE_MATERIAL
	}
	switch filepath.Ext(lower) {
	case ".spv":
		return ASSET_TYPE_SHADER
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return ASSET_TYPE_IMAGE
	case ".obj":
		return ASSET_TYPE_MODEL
	default:
		return ASSET_TYPE_NONE
	}
}
