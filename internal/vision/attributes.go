package vision

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// GenderAge holds predicted gender and age for one face crop.
type GenderAge struct {
	Gender           string // "male" or "female"
	GenderConfidence float32
	Age              int
	AgeRange         string // e.g. "30-35"
}

// AttributePredictor predicts gender and age using the InsightFace genderage model.
type AttributePredictor struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
}

// NewAttributePredictor loads the gender/age ONNX model (96x96 input).
func NewAttributePredictor(modelPath string) (*AttributePredictor, error) {
	inputW, inputH := 96, 96

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// Output [1,3]: gender score, raw age, spare.
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"data"},
		[]string{"fc1"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create attribute session: %w", err)
	}

	return &AttributePredictor{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Predict runs gender/age prediction on a face crop in CHW float32 layout.
func (p *AttributePredictor) Predict(faceData []float32) (*GenderAge, error) {
	copy(p.inputTensor.GetData(), faceData)

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("run attributes: %w", err)
	}

	data := p.outputTensor.GetData()
	if len(data) < 3 {
		return nil, fmt.Errorf("unexpected output size: %d", len(data))
	}

	genderScore := data[0]
	ageRaw := data[1]

	gender := "female"
	genderConf := 1 - genderScore
	if genderScore > 0.5 {
		gender = "male"
		genderConf = genderScore
	}

	age := int(ageRaw)
	if age < 0 {
		age = 0
	}
	if age > 100 {
		age = 100
	}

	lower := (age / 5) * 5

	return &GenderAge{
		Gender:           gender,
		GenderConfidence: genderConf,
		Age:              age,
		AgeRange:         fmt.Sprintf("%d-%d", lower, lower+5),
	}, nil
}

// InputSize returns the expected face crop dimensions.
func (p *AttributePredictor) InputSize() (int, int) {
	return p.inputW, p.inputH
}

func (p *AttributePredictor) Close() {
	if p.session != nil {
		p.session.Destroy()
	}
	if p.inputTensor != nil {
		p.inputTensor.Destroy()
	}
	if p.outputTensor != nil {
		p.outputTensor.Destroy()
	}
}
