package control

// ComboItem is one entry of a ComboBox: the text shown and the data stored.
type ComboItem struct {
	Text string `json:"text" yaml:"text"`
	Data any    `json:"value" yaml:"value"`
}

// ComboBox is a drop-down selection. An index of -1 means nothing is selected.
type ComboBox struct {
	name    string
	items   []ComboItem
	current int
}

func NewComboBox(name string, items ...ComboItem) *ComboBox {
	return &ComboBox{name: name, items: items, current: -1}
}

func (c *ComboBox) Kind() Kind   { return KindComboBox }
func (c *ComboBox) Name() string { return c.name }

func (c *ComboBox) AddItem(text string, data any) {
	c.items = append(c.items, ComboItem{Text: text, Data: data})
}

func (c *ComboBox) Items() []ComboItem {
	out := make([]ComboItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *ComboBox) Count() int { return len(c.items) }

func (c *ComboBox) CurrentIndex() int { return c.current }

// SetCurrentIndex selects the item at i. Out of range indexes clear the selection.
func (c *ComboBox) SetCurrentIndex(i int) {
	if i < 0 || i >= len(c.items) {
		c.current = -1
		return
	}
	c.current = i
}

// CurrentData returns the data of the selected item, or nil.
func (c *ComboBox) CurrentData() any {
	if c.current < 0 {
		return nil
	}
	return c.items[c.current].Data
}

// FindData returns the index of the first item whose data satisfies match, or -1.
func (c *ComboBox) FindData(match func(any) bool) int {
	for i, it := range c.items {
		if match(it.Data) {
			return i
		}
	}
	return -1
}
