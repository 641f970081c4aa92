package api

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/itchyny/gojq"
	"github.com/m-mizutani/envlake/pkg/status"
)

// getStatusList returns all components. Optional "q" is jq query applied to
// the list.
func getStatusList(reg *status.Registry, c *gin.Context) (*apiResponse, Error) {
	list := reg.List()
	if list == nil {
		list = []status.Component{}
	}

	query := c.Query("q")
	if query == "" {
		return &apiResponse{Code: 200, Message: list}, nil
	}

	q, err := gojq.Parse(query)
	if err != nil {
		return nil, wrapUserError(err, 400, "Fail to parse query (invalid jq query)")
	}

	// gojq requires plain JSON values
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, wrapSystemError(err, "Fail to marshal status")
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, wrapSystemError(err, "Fail to unmarshal status")
	}

	results := []interface{}{}
	iter := q.Run(v)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := r.(error); ok {
			return nil, wrapUserError(err, 400, "Fail to run jq query")
		}
		results = append(results, r)
	}

	return &apiResponse{Code: 200, Message: results}, nil
}

func getComponentStatus(reg *status.Registry, c *gin.Context) (*apiResponse, Error) {
	name := strings.TrimPrefix(c.Param("component"), "/")
	if name == "" {
		return nil, newUserErrorf(400, "component name is required")
	}

	comp, ok := reg.Get(name)
	if !ok {
		return nil, newUserErrorf(404, "component not found: %s", name)
	}

	return &apiResponse{Code: 200, Message: comp}, nil
}
