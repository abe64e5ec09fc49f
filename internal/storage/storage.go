// Package storage keeps uploaded documents and logos on local disk under one
// root directory. Files are addressed by key ("<kind>/<ulid><ext>") and served
// to clients below URLPrefix.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	mathrand "math/rand"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"village-portal/internal/util"
	"village-portal/pkg/apierror"
)

// URLPrefix is where stored files are served.
const URLPrefix = "/uploads/"

// LogoMaxDimension bounds the longer side of a stored logo.
const LogoMaxDimension = 512

type Kind string

const (
	KindBudgetPlan   Kind = "budget-plans"
	KindInstitution  Kind = "institutions"
	KindLegalProduct Kind = "legal-products"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

func newName() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

type Storage struct {
	rootAbs string
}

func New(root string) (*Storage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload root cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}

	for _, kind := range []Kind{KindBudgetPlan, KindInstitution, KindLegalProduct} {
		if err := os.MkdirAll(filepath.Join(rootAbs, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create upload directory %q: %w", kind, err)
		}
	}

	return &Storage{rootAbs: rootAbs}, nil
}

func (s *Storage) RootAbs() string {
	return s.rootAbs
}

func (s *Storage) Resolve(key string) (string, error) {
	return resolveKey(s.rootAbs, key)
}

// URL returns the public URL of key.
func URL(key string) string {
	return URLPrefix + strings.TrimPrefix(key, "/")
}

// KeyFromURL reverses URL. It returns "" for URLs outside URLPrefix.
func KeyFromURL(u string) string {
	if !strings.HasPrefix(u, URLPrefix) {
		return ""
	}
	return strings.TrimPrefix(u, URLPrefix)
}

// Put writes r to a fresh key under kind and returns the key.
func (s *Storage) Put(kind Kind, ext string, r io.Reader) (string, error) {
	key := path.Join(string(kind), newName()+strings.ToLower(ext))
	resolved, err := s.Resolve(key)
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(resolved, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", key, err)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(resolved)
		return "", fmt.Errorf("write %q: %w", key, errors.Join(copyErr, closeErr))
	}

	return key, nil
}

// Remove deletes key. A key that is already gone is not an error.
func (s *Storage) Remove(key string) error {
	resolved, err := s.Resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}

	return nil
}

// RemoveURL removes the file behind a URL returned by SaveDocument or SaveLogo.
func (s *Storage) RemoveURL(u string) error {
	key := KeyFromURL(u)
	if key == "" {
		return nil
	}
	return s.Remove(key)
}

// SaveDocument sniffs r and stores it when it is an accepted document type.
// It returns the public URL.
func (s *Storage) SaveDocument(kind Kind, r io.Reader) (string, error) {
	head := make([]byte, util.SniffLimit)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", apierror.BadRequest("uploaded file is empty", "")
		}
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mime, ext, ok := util.DetectDocument(head)
	if !ok {
		return "", apierror.UnsupportedMediaType("document must be a PDF, image, spreadsheet, or word file", mime)
	}

	key, err := s.Put(kind, ext, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return "", err
	}
	return URL(key), nil
}

// SaveLogo decodes r as an image, scales it down to LogoMaxDimension when
// larger, and stores it as PNG. It returns the public URL.
func (s *Storage) SaveLogo(kind Kind, r io.Reader) (string, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return "", apierror.UnsupportedMediaType("logo must be a PNG, JPEG, GIF, or WebP image", err.Error())
	}
	if !util.IsLogoFormat(format) {
		return "", apierror.UnsupportedMediaType("logo must be a PNG, JPEG, GIF, or WebP image", format)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", apierror.UnsupportedMediaType("invalid image dimensions", format)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaleDown(src, LogoMaxDimension)); err != nil {
		return "", fmt.Errorf("encode logo: %w", err)
	}

	key, err := s.Put(kind, ".png", &buf)
	if err != nil {
		return "", err
	}
	return URL(key), nil
}

func scaleDown(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	longest := max(width, height)
	if longest <= maxDim {
		return src
	}

	targetWidth := max(1, width*maxDim/longest)
	targetHeight := max(1, height*maxDim/longest)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
