package vision

import (
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

// Emotion holds a predicted dominant emotion for one face crop.
type Emotion struct {
	Label      string
	Confidence float32
}

var emotionLabels = [7]string{"neutral", "happy", "sad", "surprise", "fear", "disgust", "anger"}

// EmotionPredictor classifies the dominant facial expression with a
// 7-class FER-style ONNX model. The model is optional; the analyzer skips
// emotion estimation entirely when it is not configured.
type EmotionPredictor struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
}

// NewEmotionPredictor loads the emotion ONNX model (64x64 input, 7 logits out).
func NewEmotionPredictor(modelPath string) (*EmotionPredictor, error) {
	inputW, inputH := 64, 64

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(emotionLabels))))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create emotion session: %w", err)
	}

	return &EmotionPredictor{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Predict returns the dominant emotion with its softmax probability.
func (p *EmotionPredictor) Predict(faceData []float32) (*Emotion, error) {
	copy(p.inputTensor.GetData(), faceData)

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("run emotion: %w", err)
	}

	logits := p.outputTensor.GetData()
	if len(logits) < len(emotionLabels) {
		return nil, fmt.Errorf("unexpected output size: %d", len(logits))
	}

	best := 0
	for i := 1; i < len(emotionLabels); i++ {
		if logits[i] > logits[best] {
			best = i
		}
	}

	// Softmax probability of the winning class, computed against the max
	// logit for numeric stability.
	var denom float64
	for i := 0; i < len(emotionLabels); i++ {
		denom += math.Exp(float64(logits[i] - logits[best]))
	}

	return &Emotion{
		Label:      emotionLabels[best],
		Confidence: float32(1 / denom),
	}, nil
}

// InputSize returns the expected face crop dimensions.
func (p *EmotionPredictor) InputSize() (int, int) {
	return p.inputW, p.inputH
}

func (p *EmotionPredictor) Close() {
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
