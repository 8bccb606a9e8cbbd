package maven

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Configuration keys shared by every Maven based step
const (
	ServersConfigKey      = "maven-servers"
	RepositoriesConfigKey = "maven-repositories"
	MirrorsConfigKey      = "maven-mirrors"

	settingsNamespace      = "http://maven.apache.org/SETTINGS/1.0.0"
	settingsSchemaLocation = "http://maven.apache.org/SETTINGS/1.0.0 https://maven.apache.org/xsd/settings-1.0.0.xsd"
	repositoriesProfileID  = "op-uat-repositories"
)

// Server is a settings.xml server entry holding credentials
type Server struct {
	ID       string `xml:"id"`
	Username string `xml:"username"`
	Password string `xml:"password"`
}

// Mirror is a settings.xml mirror entry
type Mirror struct {
	ID       string `xml:"id"`
	URL      string `xml:"url"`
	MirrorOf string `xml:"mirrorOf"`
}

// Repository is a settings.xml repository entry
type Repository struct {
	ID        string           `xml:"id"`
	URL       string           `xml:"url"`
	Releases  RepositoryPolicy `xml:"releases"`
	Snapshots RepositoryPolicy `xml:"snapshots"`
}

// RepositoryPolicy toggles release or snapshot resolution for a repository
type RepositoryPolicy struct {
	Enabled bool `xml:"enabled"`
}

type settingsProfile struct {
	ID           string       `xml:"id"`
	Repositories []Repository `xml:"repositories>repository"`
}

type settingsDocument struct {
	XMLName        xml.Name          `xml:"settings"`
	Xmlns          string            `xml:"xmlns,attr"`
	XmlnsXSI       string            `xml:"xmlns:xsi,attr"`
	SchemaLocation string            `xml:"xsi:schemaLocation,attr"`
	Servers        []Server          `xml:"servers>server,omitempty"`
	Mirrors        []Mirror          `xml:"mirrors>mirror,omitempty"`
	Profiles       []settingsProfile `xml:"profiles>profile,omitempty"`
	ActiveProfiles []string          `xml:"activeProfiles>activeProfile,omitempty"`
}

// Settings is the content of a generated settings.xml
type Settings struct {
	Servers      []Server
	Repositories []Repository
	Mirrors      []Mirror
}

// ParseSettings builds Settings from the raw maven-servers, maven-repositories and
// maven-mirrors configuration values. Each value is either a mapping keyed by id or a list of
// mappings carrying an "id" key; nil values are ignored.
func ParseSettings(servers, repositories, mirrors any) (*Settings, error) {
	s := &Settings{}

	serverEntries, err := entries(ServersConfigKey, servers)
	if err != nil {
		return nil, err
	}
	for _, e := range serverEntries {
		username, hasUser := e.fields["username"]
		password, hasPass := e.fields["password"]
		if !hasUser || !hasPass {
			return nil, fmt.Errorf("%s entry %q must specify both 'username' and 'password'", ServersConfigKey, e.id)
		}
		s.Servers = append(s.Servers, Server{ID: e.id, Username: toString(username), Password: toString(password)})
	}

	repoEntries, err := entries(RepositoriesConfigKey, repositories)
	if err != nil {
		return nil, err
	}
	for _, e := range repoEntries {
		url := toString(e.fields["url"])
		if url == "" {
			return nil, fmt.Errorf("%s entry %q must specify 'url'", RepositoriesConfigKey, e.id)
		}
		releases, err := boolField(e.fields, "releases", true)
		if err != nil {
			return nil, fmt.Errorf("%s entry %q: %w", RepositoriesConfigKey, e.id, err)
		}
		snapshots, err := boolField(e.fields, "snapshots", false)
		if err != nil {
			return nil, fmt.Errorf("%s entry %q: %w", RepositoriesConfigKey, e.id, err)
		}
		s.Repositories = append(s.Repositories, Repository{
			ID:        e.id,
			URL:       url,
			Releases:  RepositoryPolicy{Enabled: releases},
			Snapshots: RepositoryPolicy{Enabled: snapshots},
		})
	}

	mirrorEntries, err := entries(MirrorsConfigKey, mirrors)
	if err != nil {
		return nil, err
	}
	for _, e := range mirrorEntries {
		url := toString(e.fields["url"])
		mirrorOf := toString(e.fields["mirror-of"])
		if url == "" || mirrorOf == "" {
			return nil, fmt.Errorf("%s entry %q must specify 'url' and 'mirror-of'", MirrorsConfigKey, e.id)
		}
		s.Mirrors = append(s.Mirrors, Mirror{ID: e.id, URL: url, MirrorOf: mirrorOf})
	}

	return s, nil
}

// Write renders the settings to <dir>/settings.xml and returns the path
func (s *Settings) Write(dir string) (string, error) {
	doc := settingsDocument{
		Xmlns:          settingsNamespace,
		XmlnsXSI:       "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: settingsSchemaLocation,
		Servers:        s.Servers,
		Mirrors:        s.Mirrors,
	}
	if len(s.Repositories) > 0 {
		doc.Profiles = []settingsProfile{{ID: repositoriesProfileID, Repositories: s.Repositories}}
		doc.ActiveProfiles = []string{repositoriesProfileID}
	}

	content, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to render maven settings: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, SettingsFilename)
	content = append([]byte(xml.Header), content...)
	if err := os.WriteFile(path, append(content, '\n'), 0600); err != nil {
		return "", fmt.Errorf("failed to write maven settings %s: %w", path, err)
	}
	return path, nil
}

type entry struct {
	id     string
	fields map[string]any
}

func entries(key string, raw any) ([]entry, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		ids := make([]string, 0, len(t))
		for id := range t {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		out := make([]entry, 0, len(ids))
		for _, id := range ids {
			fields, ok := t[id].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s entry %q must be a mapping", key, id)
			}
			out = append(out, entry{id: id, fields: fields})
		}
		return out, nil
	case []any:
		out := make([]entry, 0, len(t))
		for i, item := range t {
			fields, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s entry %d must be a mapping", key, i)
			}
			id := toString(fields["id"])
			if id == "" {
				return nil, fmt.Errorf("%s entry %d must specify 'id'", key, i)
			}
			out = append(out, entry{id: id, fields: fields})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a mapping or a list, got %T", key, raw)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func boolField(fields map[string]any, name string, def bool) (bool, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch t := raw.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %q: %q", name, t)
		}
		return b, nil
	}
	return false, fmt.Errorf("invalid boolean for %q: %v", name, raw)
}
