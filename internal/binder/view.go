package binder

// Level is the severity of a View's status message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Metric is a labelled number, e.g. the document count.
type Metric struct {
	Label string
	Value string
}

// Field is one "Label: value" line inside a Section.
type Field struct {
	Label string
	Value string
}

// Section groups fields under a heading: one per document or search result.
type Section struct {
	Title  string
	Fields []Field
}

// View is everything a front-end needs to show the outcome of one action.
// Raw holds response text that could not be interpreted and is shown as-is.
type View struct {
	Level    Level
	Message  string
	Heading  string
	Text     string
	Raw      string
	Metrics  []Metric
	Sections []Section
}

func (v View) Failed() bool { return v.Level == LevelError }

func success(msg string) View { return View{Level: LevelSuccess, Message: msg} }

func warning(msg string) View { return View{Level: LevelWarning, Message: msg} }

func failure(msg string) View { return View{Level: LevelError, Message: msg} }
