package theme

import "fmt"

//ErrorKind classifies theme parse failures
type ErrorKind int

const (
	//NoFile means the theme file does not exist
	NoFile ErrorKind = iota
	//BadXML means the file is not well formed
	BadXML
	//WrongType means the root element is not <greeter>
	WrongType
	//BadSpec means an element or attribute has an invalid value
	BadSpec
)

func (k ErrorKind) String() string {
	switch k {
	case NoFile:
		return "no-file"
	case BadXML:
		return "bad-xml"
	case WrongType:
		return "wrong-type"
	case BadSpec:
		return "bad-spec"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

//ParseError is returned by Parse and ParseFile
type ParseError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("theme: %s: %v", e.Msg, e.Err)
	}
	return "theme: " + e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func badSpec(format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: BadSpec, Msg: fmt.Sprintf(format, args...)}
}
