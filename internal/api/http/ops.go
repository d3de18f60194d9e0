package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/jsruntime/internal/textcodec"
)

// OpRequest is the body of POST /v1/ops/:namespace/:name.
type OpRequest struct {
	Args []json.RawMessage `json:"args"`
}

// EncodeIntoResponse adds the written bytes to the encodeInto result, since
// the destination buffer cannot be shared over HTTP.
type EncodeIntoResponse struct {
	textcodec.EncodeIntoResult
	Bytes []byte `json:"bytes"`
}

// Op invokes one text dispatch opcode. Arguments are JSON; byte arguments
// travel as base64 strings.
func (h *Handlers) Op(c *gin.Context) {
	op := c.Param("namespace") + "/" + c.Param("name")

	var req OpRequest
	body, err := c.GetRawData()
	if err == nil && len(body) > 0 {
		err = sonic.Unmarshal(body, &req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	args, err := decodeOpArgs(op, req.Args)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.ops.PerformOp(op, args...)
	if err != nil {
		var opErr *textcodec.OpError
		if errors.As(err, &opErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"name":    opErr.Name,
				"message": opErr.Message,
			}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if op == textcodec.OpEncodeInto {
		if r, ok := res.(textcodec.EncodeIntoResult); ok {
			dest, _ := args[1].([]byte)
			res = EncodeIntoResponse{EncodeIntoResult: r, Bytes: dest[:r.Written]}
		}
	}
	c.JSON(http.StatusOK, gin.H{"op": op, "result": res})
}

// decodeOpArgs converts JSON arguments into the Go shapes each opcode expects.
// Opcodes it does not know keep their arguments as raw JSON values, so the
// registry reports the unknown op itself.
func decodeOpArgs(op string, raw []json.RawMessage) ([]any, error) {
	str := func(i int) (string, error) {
		var s string
		if i >= len(raw) {
			return "", nil
		}
		if err := sonic.Unmarshal(raw[i], &s); err != nil {
			return "", fmt.Errorf("argument %d of %s must be a string", i, op)
		}
		return s, nil
	}

	switch op {
	case textcodec.OpEncode, textcodec.OpNormalizeLabel, textcodec.OpCleanupDecoder:
		s, err := str(0)
		if err != nil {
			return nil, err
		}
		return []any{s}, nil

	case textcodec.OpEncodeInto:
		s, err := str(0)
		if err != nil {
			return nil, err
		}
		var size int
		if len(raw) > 1 {
			if err := sonic.Unmarshal(raw[1], &size); err != nil || size < 0 {
				return nil, fmt.Errorf("argument 1 of %s must be a non-negative size", op)
			}
		}
		return []any{s, make([]byte, size)}, nil

	case textcodec.OpDecode:
		var args textcodec.DecodeArgs
		if len(raw) > 0 {
			if err := sonic.Unmarshal(raw[0], &args); err != nil {
				return nil, fmt.Errorf("argument 0 of %s: %w", op, err)
			}
		}
		return []any{args}, nil

	case textcodec.OpNewDecoder, textcodec.OpDecodeStream:
		return nil, fmt.Errorf("%s keeps per-isolate state and is not served over HTTP", op)
	}

	args := make([]any, len(raw))
	for i, r := range raw {
		args[i] = string(r)
	}
	return args, nil
}
