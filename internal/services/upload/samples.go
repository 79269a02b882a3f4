package upload

import (
	"embed"
)

//go:embed samples/sample.csv samples/sample_instructions.md
var samples embed.FS

func mustSample(name string) []byte {
	b, err := samples.ReadFile("samples/" + name)
	if err != nil {
		panic(err)
	}
	return b
}

// SampleCSV returns the example price history offered for download.
func SampleCSV() *Document {
	return &Document{
		Filename:    "sample.csv",
		ContentType: "text/csv",
		Content:     mustSample("sample.csv"),
	}
}

// SampleInstructions returns the example instructions document.
func SampleInstructions() *Document {
	return &Document{
		Filename:    "sample_instructions.md",
		ContentType: "text/markdown; charset=utf-8",
		Content:     mustSample("sample_instructions.md"),
	}
}
