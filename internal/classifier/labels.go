package classifier

import "github.com/comic-spoiler/spoiler-detector/pkg/models"

// LabelTable maps class indices to spoiler labels.
type LabelTable map[int]string

// DefaultLabels is the class layout the spoiler model is trained with.
var DefaultLabels = LabelTable{
	0: models.SpoilerUnknown,
	1: models.SpoilerNonSpoiler,
	2: models.SpoilerSpoiler,
}

// Label returns the label of class, or Unknown when it is not mapped.
func (t LabelTable) Label(class int) string {
	if l, ok := t[class]; ok {
		return l
	}
	return models.SpoilerUnknown
}
