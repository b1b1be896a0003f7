package musicbrainz

// MusicBrainz wire structures. Only the fields the service reads are mapped.

type workResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Relations []relation `json:"relations"`
}

type workSearchResponse struct {
	Works []workResponse `json:"works"`
}

// relation links a work or recording to another entity. Type selects the
// semantic ("performance", "composer", "lyricist"); exactly one of the
// target pointers is populated depending on target-type.
type relation struct {
	Type       string        `json:"type"`
	TargetType string        `json:"target-type"`
	Attributes []string      `json:"attributes"`
	Artist     *artistRef    `json:"artist,omitempty"`
	Recording  *recordingRef `json:"recording,omitempty"`
	Work       *workRef      `json:"work,omitempty"`
}

type artistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type workRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type recordingRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type recordingResponse struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	Relations    []relation     `json:"relations"`
}

type recordingSearchResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

// artistCredit is one entry of a recording's credited-artist list. JoinPhrase
// is the separator leading to the next credit ("feat.", " & ", ...).
type artistCredit struct {
	Name       string    `json:"name"`
	JoinPhrase string    `json:"joinphrase"`
	Artist     artistRef `json:"artist"`
}
