package port

import (
	"time"
)

// UserAgentType is the identity under which catalog operations are
// attributed. Entities written with one user agent are invisible to
// searches scoped to another.
type UserAgentType string

const (
	ExporterUserAgent UserAgentType = "exporter"
	GitOpsUserAgent   UserAgentType = "gitops"
)

// RawRecord is an untyped record as returned by a source. The engine never
// inspects it; it is only handed to the mapping rules of its resource kind.
type RawRecord map[string]interface{}

type (
	Meta struct {
		CreatedAt *time.Time `json:"createdAt,omitempty"`
		UpdatedAt *time.Time `json:"updatedAt,omitempty"`
		CreatedBy string     `json:"createdBy,omitempty"`
		UpdatedBy string     `json:"updatedBy,omitempty"`
	}
	AccessTokenResponse struct {
		Ok          bool   `json:"ok"`
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
		TokenType   string `json:"tokenType"`
	}
	Entity struct {
		Meta
		Identifier string                 `json:"identifier,omitempty"`
		Title      string                 `json:"title,omitempty"`
		Blueprint  string                 `json:"blueprint"`
		Icon       string                 `json:"icon,omitempty"`
		Team       interface{}            `json:"team,omitempty"`
		Properties map[string]interface{} `json:"properties"`
		Relations  map[string]interface{} `json:"relations"`
	}

	Integration struct {
		InstallationId      string                 `json:"installationId"`
		Title               string                 `json:"title,omitempty"`
		Version             string                 `json:"version,omitempty"`
		InstallationAppType string                 `json:"installationAppType,omitempty"`
		EventListener       *EventListenerSettings `json:"changelogDestination,omitempty"`
		Config              *AppConfig             `json:"config,omitempty"`
	}

	Rule struct {
		Property string      `json:"property"`
		Operator string      `json:"operator"`
		Value    interface{} `json:"value"`
	}

	OrgDetails struct {
		OrgId string `json:"id"`
	}

	OrgKafkaCredentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
)

// EntityDiff is a desired-state transition at the entity level. The applier
// derives creations, updates and deletions from the two sides; identity is
// (identifier, blueprint).
type EntityDiff struct {
	Before []Entity
	After  []Entity
}

// RawDiff is a desired-state transition at the raw record level, before
// mapping rules have been applied. Record order within each side is
// preserved through mapping.
type RawDiff struct {
	Before []RawRecord
	After  []RawRecord
}

type SearchBody struct {
	Rules      []Rule `json:"rules"`
	Combinator string `json:"combinator"`
}

type DatasourceSearchBody struct {
	DatasourcePrefix string `json:"datasource_prefix,omitempty"`
	DatasourceSuffix string `json:"datasource_suffix,omitempty"`
}

type ResponseBody struct {
	OK               bool                `json:"ok"`
	Entity           Entity              `json:"entity"`
	Entities         []Entity            `json:"entities"`
	Integration      Integration         `json:"integration"`
	KafkaCredentials OrgKafkaCredentials `json:"credentials"`
	OrgDetails       OrgDetails          `json:"organization"`
}

type BulkUpsertRequest struct {
	Entities []Entity `json:"entities"`
}

type BulkEntityResult struct {
	Identifier string `json:"identifier"`
	Created    bool   `json:"created"`
}

type BulkEntityError struct {
	Identifier string `json:"identifier"`
	Index      int    `json:"index"`
	Message    string `json:"message"`
}

type BulkUpsertResponse struct {
	OK       bool               `json:"ok"`
	Entities []BulkEntityResult `json:"entities"`
	Errors   []BulkEntityError  `json:"errors"`
}

// EntityMapping declares how one entity is derived from a raw record. Every
// field holds a jq expression evaluated against the record; Relations may
// nest maps and arrays of expressions.
type EntityMapping struct {
	Identifier string                 `json:"identifier"`
	Title      string                 `json:"title,omitempty"`
	Blueprint  string                 `json:"blueprint"`
	Icon       string                 `json:"icon,omitempty"`
	Team       string                 `json:"team,omitempty"`
	Properties map[string]string      `json:"properties,omitempty"`
	Relations  map[string]interface{} `json:"relations,omitempty"`
}

type EntityMappings struct {
	Mappings []EntityMapping `json:"mappings"`
}

type Port struct {
	Entity EntityMappings `json:"entity"`
}

// Selector filters raw records before mapping. Query is a jq expression that
// must evaluate to a boolean; records it rejects are skipped silently.
type Selector struct {
	Query string `json:"query,omitempty"`
}

// Resource binds a resource kind to the mapping rules that turn its raw
// records into entities. Several Resource entries may share one kind; each
// produces entities independently.
type Resource struct {
	Kind     string   `json:"kind"`
	Selector Selector `json:"selector,omitempty"`
	Port     Port     `json:"port"`
}

type EventListenerSettings struct {
	Type string `json:"type,omitempty"`
}

type AppConfig struct {
	Resources []Resource `json:"resources"`
}

// Config is the application-level configuration after merging the local
// sources file with flag and environment overrides. Resources only seeds the
// integration's remote config when none exists yet.
type Config struct {
	StateKey          string
	EventListenerType string
	ResyncInterval    uint
	Resources         []Resource
}
