package directus

import (
	"encoding/json"
	"strconv"
	"time"
)

// Item is a record of a user collection. Collections are schemaless from the
// client's point of view so items stay as decoded JSON objects.
type Item map[string]interface{}

// ID returns the primary key of the item as text.
func (i Item) ID() string {
	switch id := i["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

// Relation holds a many-to-one value: either the related primary key or, when
// the field was expanded, the related object.
type Relation struct {
	ID     string
	Object map[string]interface{}
}

// UnmarshalJSON accepts a string, a number, null or an object.
func (r *Relation) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Relation{}

		return nil
	}

	var id string

	err := json.Unmarshal(data, &id)
	if err == nil {
		r.ID = id

		return nil
	}

	var number json.Number

	err = json.Unmarshal(data, &number)
	if err == nil {
		r.ID = number.String()

		return nil
	}

	var object map[string]interface{}

	err = json.Unmarshal(data, &object)
	if err != nil {
		return err
	}

	r.Object = object
	if id, ok := object["id"].(string); ok {
		r.ID = id
	}

	return nil
}

// MarshalJSON writes the id, or the object when only an expanded value is known.
func (r Relation) MarshalJSON() ([]byte, error) {
	if r.ID != "" {
		return json.Marshal(r.ID)
	}

	if r.Object != nil {
		return json.Marshal(r.Object)
	}

	return []byte("null"), nil
}

// Folder represents a virtual folder.
type Folder struct {
	ID     string    `json:"id"     yaml:"id"`
	Name   string    `json:"name"   yaml:"name"`
	Parent *Relation `json:"parent" yaml:"parent,omitempty"`
}

// FolderRequest is the body used to create or update a folder.
type FolderRequest struct {
	Name   string `json:"name,omitempty"   yaml:"name,omitempty"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// File represents the metadata of a stored file.
type File struct {
	ID               string                 `json:"id"                          yaml:"id"`
	Storage          string                 `json:"storage"                     yaml:"storage"`
	FilenameDisk     string                 `json:"filename_disk"               yaml:"filename_disk"`
	FilenameDownload string                 `json:"filename_download"           yaml:"filename_download"`
	Title            *string                `json:"title"                       yaml:"title,omitempty"`
	Type             string                 `json:"type"                        yaml:"type"`
	Folder           *Relation              `json:"folder"                      yaml:"folder,omitempty"`
	UploadedBy       *Relation              `json:"uploaded_by"                 yaml:"uploaded_by,omitempty"`
	UploadedOn       *time.Time             `json:"uploaded_on"                 yaml:"uploaded_on,omitempty"`
	ModifiedBy       *Relation              `json:"modified_by"                 yaml:"modified_by,omitempty"`
	Filesize         json.Number            `json:"filesize"                    yaml:"filesize"`
	Width            *int                   `json:"width"                       yaml:"width,omitempty"`
	Height           *int                   `json:"height"                      yaml:"height,omitempty"`
	Duration         *int                   `json:"duration"                    yaml:"duration,omitempty"`
	Description      *string                `json:"description"                 yaml:"description,omitempty"`
	Location         *string                `json:"location"                    yaml:"location,omitempty"`
	Tags             []string               `json:"tags"                        yaml:"tags,omitempty"`
	Metadata         map[string]interface{} `json:"metadata"                    yaml:"metadata,omitempty"`
}

// FileCreateRequest imports a file from a URL.
type FileCreateRequest struct {
	URL  string             `json:"url"            yaml:"url"`
	Data *FileUpdateRequest `json:"data,omitempty" yaml:"data,omitempty"`
}

// FileUpdateRequest contains the editable metadata of a file.
type FileUpdateRequest struct {
	Title       *string  `json:"title,omitempty"       yaml:"title,omitempty"`
	Description *string  `json:"description,omitempty" yaml:"description,omitempty"`
	Location    *string  `json:"location,omitempty"    yaml:"location,omitempty"`
	Folder      *string  `json:"folder,omitempty"      yaml:"folder,omitempty"`
	Tags        []string `json:"tags,omitempty"        yaml:"tags,omitempty"`
}

// Activity represents an entry of the activity log.
type Activity struct {
	ID         int               `json:"id"         yaml:"id"`
	Action     string            `json:"action"     yaml:"action"`
	Collection string            `json:"collection" yaml:"collection"`
	Comment    *string           `json:"comment"    yaml:"comment,omitempty"`
	IP         string            `json:"ip"         yaml:"ip"`
	Item       string            `json:"item"       yaml:"item"`
	Timestamp  time.Time         `json:"timestamp"  yaml:"timestamp"`
	User       *Relation         `json:"user"       yaml:"user,omitempty"`
	UserAgent  string            `json:"user_agent" yaml:"user_agent"`
	Revisions  []json.RawMessage `json:"revisions"  yaml:"-"`
}

// DataEnvelope is the success body of every Directus endpoint.
type DataEnvelope[T any] struct {
	Data T `json:"data"`
}
