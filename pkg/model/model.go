package model

const (
	StatusActive = "active"
)

// IdentityRecord is the stored username-to-key binding, kept under user:<name>.
type IdentityRecord struct {
	Username string   `json:"username,omitempty"`
	Pubkey   string   `json:"pubkey"`
	Status   string   `json:"status"`
	Relays   []string `json:"relays,omitempty"`
}

func (r IdentityRecord) IsActive() bool {
	return r.Status == StatusActive
}

// DiscoveryDocument is the body served at /.well-known/nostr.json.
type DiscoveryDocument struct {
	Names  map[string]string   `json:"names"`
	Relays map[string][]string `json:"relays,omitempty"`
}

func NewDiscoveryDocument(name string, record IdentityRecord) DiscoveryDocument {
	doc := DiscoveryDocument{
		Names: map[string]string{name: record.Pubkey},
	}
	if len(record.Relays) > 0 {
		doc.Relays = map[string][]string{record.Pubkey: record.Relays}
	}
	return doc
}

// ContentIndex maps a logical asset path to its stored content.
type ContentIndex map[string]ContentIndexEntry

type ContentIndexEntry struct {
	Key         string   `json:"key"`
	Size        int64    `json:"size"`
	ContentType string   `json:"contentType"`
	Variants    []string `json:"variants,omitempty"`
}

type VideoEvent struct {
	Tags    [][]string `json:"tags"`
	Content string     `json:"content"`
}

type VideoStats struct {
	Reactions int `json:"reactions"`
	Comments  int `json:"comments"`
	Reposts   int `json:"reposts"`
}

type VideoAuthor struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// VideoResponse is the body of GET /api/videos/{id}.
type VideoResponse struct {
	Event  *VideoEvent  `json:"event"`
	Stats  *VideoStats  `json:"stats"`
	Author *VideoAuthor `json:"author,omitempty"`
}

// VideoMetadata is the display data used for crawler previews.
type VideoMetadata struct {
	Title        string
	Description  string
	ThumbnailURL string
	AuthorName   string
	Reactions    int
	Comments     int
	Reposts      int
}

type UserProfile struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	About       string `json:"about,omitempty"`
	Nip05       string `json:"nip05,omitempty"`
}

type UserSocial struct {
	FollowerCount  int `json:"follower_count"`
	FollowingCount int `json:"following_count"`
}

type UserStats struct {
	VideoCount int `json:"video_count"`
}

// UserResponse is the body of GET /api/users/{pubkey}.
type UserResponse struct {
	Profile *UserProfile `json:"profile"`
	Social  *UserSocial  `json:"social"`
	Stats   *UserStats   `json:"stats"`
}

// ProfilePayload is embedded into the application shell as window.__GLOBAL_USER__.
type ProfilePayload struct {
	Subdomain      string  `json:"subdomain"`
	Pubkey         string  `json:"pubkey"`
	Npub           *string `json:"npub"`
	Username       string  `json:"username"`
	DisplayName    string  `json:"displayName"`
	Picture        *string `json:"picture"`
	Banner         *string `json:"banner"`
	About          *string `json:"about"`
	Nip05          string  `json:"nip05"`
	FollowersCount int     `json:"followersCount"`
	FollowingCount int     `json:"followingCount"`
	VideoCount     int     `json:"videoCount"`
	ApexDomain     string  `json:"apexDomain"`
}

type ErrorResponse struct {
	Status  int         `json:"status,omitempty"`
	Message string      `json:"msg,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
