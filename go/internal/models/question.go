package models

// Question is a single multiple choice question as stored by the admin panel.
type Question struct {
	ID            string            `json:"id" yaml:"id"`
	Text          string            `json:"text" yaml:"text"`
	Options       map[string]string `json:"options" yaml:"options"`
	CorrectAnswer string            `json:"-" yaml:"correct_answer"`
	Explanation   string            `json:"explanation,omitempty" yaml:"explanation"`
	Position      int               `json:"position" yaml:"position"`
}
