package notion

// Parent reference types returned by the API.
const (
	ParentWorkspace = "workspace"
	ParentDatabase  = "database_id"
	ParentPage      = "page_id"
)

// Object is a page or database as returned by the Notion API. Only the
// fields the mirror consumes are decoded; everything else is dropped.
type Object struct {
	ID             string              `json:"id"`
	Object         string              `json:"object"`
	Parent         Parent              `json:"parent"`
	Archived       bool                `json:"archived"`
	URL            string              `json:"url"`
	LastEditedTime string              `json:"last_edited_time"`

	// Properties is set for pages. The title property carries the page's
	// display title.
	Properties map[string]Property `json:"properties,omitempty"`

	// Title is set for databases.
	Title []RichText `json:"title,omitempty"`
}

// Parent is the parent reference of a page or database.
type Parent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
}

// IsPage returns whether the object is a page.
func (o Object) IsPage() bool {
	return o.Object == "page"
}

// DisplayTitle returns the object's title, falling back to a placeholder
// when the object has no title or wasn't fully fetched.
func (o Object) DisplayTitle() string {
	if o.Object == "database" {
		if title := PlainText(o.Title); title != "" {
			return title
		}
		return "untitled_db"
	}

	for _, prop := range o.Properties {
		if prop.Type == "title" {
			if title := PlainText(prop.Title); title != "" {
				return title
			}
			break
		}
	}
	return "untitled_page"
}

// RichText is one span of annotated text.
type RichText struct {
	PlainText   string      `json:"plain_text"`
	Href        string      `json:"href,omitempty"`
	Annotations Annotations `json:"annotations,omitempty"`
}

// Annotations are the text decorations on a RichText span.
type Annotations struct {
	Bold          bool `json:"bold,omitempty"`
	Italic        bool `json:"italic,omitempty"`
	Strikethrough bool `json:"strikethrough,omitempty"`
	Underline     bool `json:"underline,omitempty"`
	Code          bool `json:"code,omitempty"`
}

// PlainText concatenates the plain text of the given spans.
func PlainText(spans []RichText) string {
	text := ""
	for _, span := range spans {
		text += span.PlainText
	}
	return text
}

// Property is one page property. The populated field depends on Type.
type Property struct {
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Status      *SelectOption  `json:"status,omitempty"`
	Checkbox    bool           `json:"checkbox,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	URL         string         `json:"url,omitempty"`
	Email       string         `json:"email,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	People      []User         `json:"people,omitempty"`
	Files       []FileRef      `json:"files,omitempty"`
	Relation    []Relation     `json:"relation,omitempty"`
}

// SelectOption is a select, multi-select, or status value.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is a date property value.
type DateValue struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// User is a person referenced by a people property.
type User struct {
	Name string `json:"name,omitempty"`
}

// FileRef is an attachment referenced by a files property.
type FileRef struct {
	Name string `json:"name,omitempty"`
}

// Relation is a reference to a page in another database.
type Relation struct {
	ID string `json:"id"`
}

// Block is one content block. The populated body field depends on Type.
type Block struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`

	Paragraph        *BlockText  `json:"paragraph,omitempty"`
	Heading1         *BlockText  `json:"heading_1,omitempty"`
	Heading2         *BlockText  `json:"heading_2,omitempty"`
	Heading3         *BlockText  `json:"heading_3,omitempty"`
	Quote            *BlockText  `json:"quote,omitempty"`
	Callout          *BlockText  `json:"callout,omitempty"`
	BulletedListItem *BlockText  `json:"bulleted_list_item,omitempty"`
	NumberedListItem *BlockText  `json:"numbered_list_item,omitempty"`
	ToDo             *BlockText  `json:"to_do,omitempty"`
	Toggle           *BlockText  `json:"toggle,omitempty"`
	Code             *CodeBlock  `json:"code,omitempty"`
	Image            *FileBlock  `json:"image,omitempty"`
	File             *FileBlock  `json:"file,omitempty"`
	PDF              *FileBlock  `json:"pdf,omitempty"`
	Video            *FileBlock  `json:"video,omitempty"`
	Audio            *FileBlock  `json:"audio,omitempty"`
	Bookmark         *Bookmark   `json:"bookmark,omitempty"`
	Equation         *Equation   `json:"equation,omitempty"`
	ChildPage        *ChildTitle `json:"child_page,omitempty"`
	ChildDatabase    *ChildTitle `json:"child_database,omitempty"`
}

// BlockText is the body shared by the text-bearing block types.
type BlockText struct {
	RichText []RichText `json:"rich_text,omitempty"`
	Checked  bool       `json:"checked,omitempty"`
	Icon     *Icon      `json:"icon,omitempty"`
}

// CodeBlock is the body of a code block.
type CodeBlock struct {
	RichText []RichText `json:"rich_text,omitempty"`
	Language string     `json:"language,omitempty"`
}

// FileBlock is the body of a media or attachment block.
type FileBlock struct {
	Caption  []RichText `json:"caption,omitempty"`
	File     *FileURL   `json:"file,omitempty"`
	External *FileURL   `json:"external,omitempty"`
}

// URLString returns the hosted or external URL of the file, if any.
func (f FileBlock) URLString() string {
	if f.File != nil {
		return f.File.URL
	}
	if f.External != nil {
		return f.External.URL
	}
	return ""
}

// FileURL is a hosted or external file location.
type FileURL struct {
	URL string `json:"url,omitempty"`
}

// Bookmark is the body of a bookmark block.
type Bookmark struct {
	URL     string     `json:"url,omitempty"`
	Caption []RichText `json:"caption,omitempty"`
}

// Equation is the body of an equation block.
type Equation struct {
	Expression string `json:"expression,omitempty"`
}

// Icon is a callout icon.
type Icon struct {
	Type  string `json:"type,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

// ChildTitle is the body of a child_page or child_database block.
type ChildTitle struct {
	Title string `json:"title,omitempty"`
}
