package minecraft

import (
	"strings"
	"unicode/utf8"
)

type PlayerSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// JavaServer is the Java edition status payload
type JavaServer struct {
	Description string `json:"description"`
	Players     struct {
		Online int            `json:"online"`
		Max    int            `json:"max"`
		Sample []PlayerSample `json:"sample"`
	} `json:"players"`
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	// Favicon is a data URI: data:image/png;base64,...
	Favicon string `json:"favicon"`
}

// BedrockServer is the Bedrock edition status payload
type BedrockServer struct {
	Motd    string `json:"motd"`
	Players struct {
		Online int      `json:"online"`
		Max    int      `json:"max"`
		Names  []string `json:"names"`
	} `json:"players"`
	Software struct {
		Version string `json:"version"`
	} `json:"software"`
	Map string `json:"map"`
}

// Profile is a Mojang account
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NameChange is one entry of a name history. The original name has no ChangedToAt.
type NameChange struct {
	Name        string `json:"name"`
	ChangedToAt int64  `json:"changedToAt,omitempty"`
}

// Sales are Minecraft purchase statistics
type Sales struct {
	Total                  int64   `json:"total"`
	Last24h                int64   `json:"last24h"`
	SaleVelocityPerSeconds float64 `json:"saleVelocityPerSeconds"`
}

type named struct {
	Name string `json:"name"`
}

// Bug is an issue on the Mojang bug tracker
type Bug struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Project     named  `json:"project"`
		Creator     struct {
			DisplayName string `json:"displayName"`
		} `json:"creator"`
		Created string `json:"created"`
		Updated string `json:"updated"`
		Votes   struct {
			Votes int `json:"votes"`
		} `json:"votes"`
		Watches struct {
			WatchCount int `json:"watchCount"`
		} `json:"watches"`
		IssueType   named   `json:"issuetype"`
		Status      named   `json:"status"`
		Resolution  *named  `json:"resolution"`
		Versions    []named `json:"versions"`
		FixVersions []named `json:"fixVersions"`
	} `json:"fields"`
}

// AffectedVersions joins the affected version names
func (b *Bug) AffectedVersions() string {
	names := make([]string, 0, len(b.Fields.Versions))
	for _, v := range b.Fields.Versions {
		names = append(names, v.Name)
	}
	return strings.Join(names, ", ")
}

// WikiPage is the intro extract of a wiki article
type WikiPage struct {
	Title   string
	Extract string
	URL     string
}

// Summary returns the extract with paragraphs spaced out, cut to limit
// characters with a "(read more)" link when longer.
func (p WikiPage) Summary(limit int) string {
	text := strings.ReplaceAll(strings.TrimSpace(p.Extract), "\n", "\n\n")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "... [(read more)](" + p.URL + ")"
}
