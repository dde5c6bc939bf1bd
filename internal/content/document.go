package content

// Document is a projected content document. A nil Document means the query
// matched nothing.
type Document map[string]any

// Field returns the string field key, or "" when absent or not a string.
func (d Document) Field(key string) string {
	s, _ := d[key].(string)
	return s
}

// Title returns the document title.
func (d Document) Title() string {
	return d.Field("title")
}

// Block is one portable text block of a document body.
type Block map[string]any

// Type returns the block _type.
func (b Block) Type() string {
	s, _ := b["_type"].(string)
	return s
}

// Text joins the text of all block children.
func (b Block) Text() string {
	children, _ := b["children"].([]any)
	var text string
	for _, c := range children {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["text"].(string); ok {
			text += s
		}
	}
	return text
}

// Body returns the blocks of the document body.
func (d Document) Body() []Block {
	raw, _ := d["body"].([]any)
	blocks := make([]Block, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			blocks = append(blocks, Block(m))
		}
	}
	return blocks
}

// LiveStory is an embedded Live Story module.
type LiveStory struct {
	ID    string
	Type  string
	Title string
}

// LiveStory returns the page-level Live Story, if the document has one
// with an id.
func (d Document) LiveStory() (LiveStory, bool) {
	m, _ := d["liveStory"].(map[string]any)
	st := liveStoryOf(m)
	return st, st.ID != ""
}

func liveStoryOf(m map[string]any) LiveStory {
	id, _ := m["id"].(string)
	typ, _ := m["type"].(string)
	title, _ := m["title"].(string)
	return LiveStory{ID: id, Type: typ, Title: title}
}

// LiveStories returns the Live Story modules of the body in order.
func (d Document) LiveStories() []LiveStory {
	var out []LiveStory
	for _, b := range d.Body() {
		if b.Type() != "module.livestory" {
			continue
		}
		if st := liveStoryOf(b); st.ID != "" {
			out = append(out, st)
		}
	}
	return out
}
