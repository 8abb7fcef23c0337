package plextv

import "encoding/xml"

// Account is the signed-in plex.tv account or home profile.
type Account struct {
	XMLName  xml.Name `xml:"user" json:"-"`
	ID       int      `xml:"id,attr" json:"id"`
	UUID     string   `xml:"uuid,attr" json:"uuid"`
	Email    string   `xml:"email,attr" json:"email"`
	Username string   `xml:"username,attr" json:"username"`
	Title    string   `xml:"title,attr" json:"title"`
	Thumb    string   `xml:"thumb,attr" json:"thumb"`
	Token    string   `xml:"authenticationToken,attr" json:"authToken"`
}

// HomeUser is one selectable profile of a Plex Home.
type HomeUser struct {
	ID        int    `json:"id"`
	UUID      string `json:"uuid"`
	Title     string `json:"title"`
	Admin     bool   `json:"admin"`
	Guest     bool   `json:"guest"`
	Protected bool   `json:"protected"`
	Thumb     string `json:"thumb"`
}

// homeUsersResponse
type homeUsersResponse struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Users []HomeUser `json:"users"`
}

// Connection is one advertised network path to a resource.
type Connection struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	URI      string `json:"uri"`
	Local    bool   `json:"local"`
	Relay    bool   `json:"relay"`
	IPv6     bool   `json:"IPv6"`
}

// Resource is one device attached to the account, servers included.
type Resource struct {
	Name             string       `json:"name"`
	Product          string       `json:"product"`
	ProductVersion   string       `json:"productVersion"`
	Platform         string       `json:"platform"`
	ClientIdentifier string       `json:"clientIdentifier"`
	Provides         string       `json:"provides"`
	AccessToken      string       `json:"accessToken"`
	Owned            bool         `json:"owned"`
	Presence         bool         `json:"presence"`
	PublicAddress    string       `json:"publicAddress"`
	Connections      []Connection `json:"connections"`
}
