package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/snowfall/engine/assets/loaders"
	"github.com/spaghettifunk/snowfall/engine/core"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeBinary
	AssetTypeShaderConfig
	AssetTypeImage
	AssetTypeVolume
	AssetTypeTransferFunction
)

/**
 * @brief A loader turns a file into an in-memory asset and releases it again.
 * Load may return any type; callers retrieve it with the generic Load function.
 */
type Loader interface {
	Load(path string) (interface{}, error)
	Unload(data interface{}) error
}

type Asset struct {
	Path       string
	Type       AssetType
	Data       interface{}
	RefCount   int
	LastLoaded time.Time
}

// ReloadFunc is invoked from Poll after a watched asset was reloaded.
type ReloadFunc func(path string, data interface{})

type ContentManagerConfig struct {
	/** @brief Relative asset paths are resolved against Root. */
	Root string
}

/**
 * @brief Path-keyed, reference-counted asset cache. Loading the same path twice
 * returns the cached asset and bumps its reference count. Files under watched
 * directories are reloaded by Poll when they change on disk.
 */
type ContentManager struct {
	root    string
	assets  map[string]*Asset
	loaders map[AssetType]Loader
	hooks   map[string][]ReloadFunc

	mutex sync.RWMutex

	watcher  *fsnotify.Watcher
	pending  map[string]struct{}
	pendMu   sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewContentManager(config ContentManagerConfig) *ContentManager {
	cm := &ContentManager{
		root:    config.Root,
		assets:  make(map[string]*Asset),
		loaders: make(map[AssetType]Loader),
		hooks:   make(map[string][]ReloadFunc),
		pending: make(map[string]struct{}),
	}
	cm.RegisterLoader(AssetTypeBinary, &loaders.BinaryLoader{})
	cm.RegisterLoader(AssetTypeShaderConfig, &loaders.ShaderConfigLoader{})
	cm.RegisterLoader(AssetTypeImage, &loaders.ImageLoader{})
	cm.RegisterLoader(AssetTypeVolume, &loaders.RawVolumeLoader{})
	return cm
}

// Register loaders for each asset type
func (cm *ContentManager) RegisterLoader(assetType AssetType, loader Loader) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.loaders[assetType] = loader
}

func (cm *ContentManager) Resolve(path string) string {
	if cm.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(cm.root, path)
	}
	return filepath.Clean(path)
}

/**
 * @brief Loads the asset at path, or returns the cached one, checking its type.
 * Every successful Load must be paired with a Release.
 */
func Load[T any](cm *ContentManager, path string) (T, error) {
	var zero T
	data, err := cm.load(path)
	if err != nil {
		return zero, err
	}
	typed, ok := data.(T)
	if !ok {
		cm.Release(path)
		return zero, fmt.Errorf("%s holds %T, not %T: %w", path, data, zero, core.ErrAssetType)
	}
	return typed, nil
}

func (cm *ContentManager) load(path string) (interface{}, error) {
	key := cm.Resolve(path)

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if asset, exists := cm.assets[key]; exists {
		asset.RefCount++
		return asset.Data, nil
	}

	assetType := DetermineAssetType(key)
	loader, loaderExists := cm.loaders[assetType]
	if !loaderExists {
		return nil, fmt.Errorf("%s: %w", key, core.ErrNoLoader)
	}

	data, err := loader.Load(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%s: %w: %w", key, core.ErrAssetNotFound, err)
		}
		core.LogError("failed to load asset %s: %s", key, err)
		return nil, err
	}

	cm.assets[key] = &Asset{
		Path:       key,
		Type:       assetType,
		Data:       data,
		RefCount:   1,
		LastLoaded: time.Now(),
	}
	core.LogDebug("loaded asset %s", key)
	return data, nil
}

/**
 * @brief Drops one reference to the asset. The last reference unloads it.
 * @return false if the path was not loaded.
 */
func (cm *ContentManager) Release(path string) bool {
	key := cm.Resolve(path)

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	asset, exists := cm.assets[key]
	if !exists {
		return false
	}
	asset.RefCount--
	if asset.RefCount > 0 {
		return true
	}
	if loader, ok := cm.loaders[asset.Type]; ok {
		if err := loader.Unload(asset.Data); err != nil {
			core.LogWarn("failed to unload asset %s: %s", key, err)
		}
	}
	delete(cm.assets, key)
	delete(cm.hooks, key)
	return true
}

func (cm *ContentManager) Asset(path string) (Asset, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	asset, ok := cm.assets[cm.Resolve(path)]
	if !ok {
		return Asset{}, false
	}
	return *asset, true
}

func (cm *ContentManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.assets)
}

// OnReload registers fn to run after path is reloaded by Poll.
func (cm *ContentManager) OnReload(path string, fn ReloadFunc) {
	key := cm.Resolve(path)
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.hooks[key] = append(cm.hooks[key], fn)
}

/**
 * @brief Starts watching dir and all of its sub-directories for changes.
 */
func (cm *ContentManager) Watch(dir string) error {
	if cm.isClosed {
		return errors.New("content manager already shut down")
	}
	if cm.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		cm.watcher = w
		cm.done = make(chan struct{})
		cm.wg.Add(1)
		go cm.start()
	}
	return cm.watchRecursive(cm.Resolve(dir))
}

// watchRecursive adds all directories under the given one to the watch list.
func (cm *ContentManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return cm.watcher.Add(walkPath)
		}
		return nil
	})
}

func (cm *ContentManager) start() {
	defer cm.wg.Done()
	for {
		select {
		case e, ok := <-cm.watcher.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := cm.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cm.pendMu.Lock()
				cm.pending[filepath.Clean(e.Name)] = struct{}{}
				cm.pendMu.Unlock()
			}

		case err, ok := <-cm.watcher.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-cm.done:
			return
		}
	}
}

/**
 * @brief Reloads every loaded asset whose file changed since the last call and
 * runs its reload hooks. Must be called from the thread that owns the assets.
 * @return The number of assets reloaded.
 */
func (cm *ContentManager) Poll() int {
	cm.pendMu.Lock()
	changed := cm.pending
	cm.pending = make(map[string]struct{})
	cm.pendMu.Unlock()

	reloaded := 0
	for path := range changed {
		cm.mutex.Lock()
		asset, exists := cm.assets[path]
		if !exists {
			cm.mutex.Unlock()
			continue
		}
		loader := cm.loaders[asset.Type]
		data, err := loader.Load(path)
		if err != nil {
			cm.mutex.Unlock()
			core.LogWarn("hot reload of %s failed, keeping previous version: %s", path, err)
			continue
		}
		if err := loader.Unload(asset.Data); err != nil {
			core.LogWarn("failed to unload asset %s: %s", path, err)
		}
		asset.Data = data
		asset.LastLoaded = time.Now()
		hooks := append([]ReloadFunc(nil), cm.hooks[path]...)
		cm.mutex.Unlock()

		core.LogInfo("reloaded asset %s", path)
		for _, fn := range hooks {
			fn(path, data)
		}
		reloaded++
	}
	return reloaded
}

/**
 * @brief Stops watching and unloads every remaining asset regardless of its
 * reference count.
 */
func (cm *ContentManager) Shutdown() error {
	if cm.isClosed {
		return nil
	}
	cm.isClosed = true

	var err error
	if cm.watcher != nil {
		close(cm.done)
		err = cm.watcher.Close()
		cm.wg.Wait()
	}

	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	for key, asset := range cm.assets {
		if loader, ok := cm.loaders[asset.Type]; ok {
			if uerr := loader.Unload(asset.Data); uerr != nil {
				core.LogWarn("failed to unload asset %s: %s", key, uerr)
			}
		}
	}
	cm.assets = make(map[string]*Asset)
	cm.hooks = make(map[string][]ReloadFunc)
	return err
}

func DetermineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".spv", ".cso", ".bin":
		return AssetTypeBinary
	case ".shadercfg":
		return AssetTypeShaderConfig
	case ".png", ".bmp":
		return AssetTypeImage
	case ".raw":
		return AssetTypeVolume
	case ".tf":
		return AssetTypeTransferFunction
	default:
		return AssetTypeNone
	}
}
