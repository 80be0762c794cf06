package inference

import (
	"context"
	"image"
	"net/http"
	"time"
)

// Detection is one bounding box reported by the detection service.
type Detection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class,omitempty"`
}

// Rect truncates the box coordinates to integer pixels.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(int(d.X1), int(d.Y1), int(d.X2), int(d.Y2))
}

// DetectorClient talks to the object detection service (YOLO behind HTTP).
type DetectorClient struct {
	endpoint string
	client   *http.Client
}

// NewDetectorClient creates a client posting images to endpoint.
func NewDetectorClient(endpoint string, timeout time.Duration, opts ...Option) *DetectorClient {
	o := buildOptions(timeout, opts)
	return &DetectorClient{endpoint: endpoint, client: o.client}
}

// Detect returns the boxes found in img.
func (c *DetectorClient) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	var result struct {
		Detections []Detection `json:"detections"`
	}
	if err := postImage(ctx, c.client, c.endpoint, "detector", img, &result); err != nil {
		return nil, err
	}

	boxes := make([]image.Rectangle, 0, len(result.Detections))
	for _, d := range result.Detections {
		boxes = append(boxes, d.Rect())
	}
	return boxes, nil
}

// CheckHealth verifies the detection service is reachable.
func (c *DetectorClient) CheckHealth(ctx context.Context) error {
	return checkHealth(ctx, c.client, c.endpoint, "detector")
}
