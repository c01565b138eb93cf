// Package lists implements the allow/deny/wildcard list repository
// (SPEC_FULL §4.L), grounded on
// original_source/src/dns/delete_list.rs's List enum and the
// get_list/add_list/remove_list collaborators it calls — a flat-file
// repository whose mutations are followed by a resolver reload request
// (internal/ftl/socket's `>reload` style command) issued by the handler,
// never by this package itself.
package lists

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pihole/pihole-api/internal/apierror"
)

// Kind identifies one of the three flat-file lists FTL consults.
type Kind string

const (
	Whitelist Kind = "whitelist"
	Blacklist Kind = "blacklist"
	Wildlist  Kind = "wildlist"
)

var defaultFileNames = map[Kind]string{
	Whitelist: "whitelist.txt",
	Blacklist: "blacklist.txt",
	Wildlist:  "wildcard.txt",
}

// Repository reads and writes the plain-text list files under a configured
// directory. Mutations take an in-process mutex since dnsmasq/gravity
// regeneration external tooling may read the same files concurrently with
// this process's own handlers.
type Repository struct {
	mu  sync.Mutex
	dir string
}

// NewRepository builds a Repository rooted at dir (typically
// `/etc/pihole`).
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

func (r *Repository) path(kind Kind) string {
	return filepath.Join(r.dir, defaultFileNames[kind])
}

// Get returns every domain currently in the named list, in file order.
func (r *Repository) Get(kind Kind) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.Wrap(apierror.KindSharedMemoryReadError, "reading "+string(kind), err)
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, apierror.Wrap(apierror.KindSharedMemoryReadError, "reading "+string(kind), err)
	}
	return domains, nil
}

// Add appends domain to the named list unless it is already present.
func (r *Repository) Add(kind Kind, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.getLocked(kind)
	if err != nil {
		return err
	}
	for _, d := range existing {
		if d == domain {
			return apierror.New(apierror.KindBadRequest, domain+" is already in the "+string(kind))
		}
	}

	f, err := os.OpenFile(r.path(kind), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryReadError, "opening "+string(kind), err)
	}
	defer f.Close()

	if _, err := f.WriteString(domain + "\n"); err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryReadError, "writing "+string(kind), err)
	}
	return nil
}

// Remove deletes domain from the named list, grounded on
// original_source/src/dns/delete_list.rs's remove_list collaborator.
func (r *Repository) Remove(kind Kind, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.getLocked(kind)
	if err != nil {
		return err
	}

	found := false
	kept := make([]string, 0, len(existing))
	for _, d := range existing {
		if d == domain {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return apierror.New(apierror.KindNotFound, domain+" is not in the "+string(kind))
	}

	return r.writeLocked(kind, kept)
}

func (r *Repository) getLocked(kind Kind) ([]string, error) {
	f, err := os.Open(r.path(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.Wrap(apierror.KindSharedMemoryReadError, "reading "+string(kind), err)
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	return domains, scanner.Err()
}

func (r *Repository) writeLocked(kind Kind, domains []string) error {
	tmp := r.path(kind) + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryReadError, "writing "+string(kind), err)
	}

	for _, d := range domains {
		if _, err := f.WriteString(d + "\n"); err != nil {
			f.Close()
			return apierror.Wrap(apierror.KindSharedMemoryReadError, "writing "+string(kind), err)
		}
	}
	if err := f.Close(); err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryReadError, "writing "+string(kind), err)
	}

	if err := os.Rename(tmp, r.path(kind)); err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryReadError, "replacing "+string(kind), err)
	}
	return nil
}
