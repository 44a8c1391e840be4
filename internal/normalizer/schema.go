package normalizer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ModelTestCase is the object shape requested from the model.
type ModelTestCase struct {
	UseCase         string `json:"Use Case" jsonschema:"required"`
	TestScenario    string `json:"Test Scenario" jsonschema:"required"`
	Preconditions   string `json:"Preconditions,omitempty"`
	Input           string `json:"Input,omitempty"`
	ExpectedResults string `json:"Expected Results" jsonschema:"required,description=numbered list of every expected result"`
}

// ResponseSchema returns the JSON Schema of the expected model output: an
// array of ModelTestCase objects. It is sent to providers that support
// structured output.
func ResponseSchema() map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	item := r.Reflect(&ModelTestCase{})
	item.Version = ""
	item.ID = ""

	raw, err := json.Marshal(item)
	if err != nil {
		panic(fmt.Sprintf("marshal response item schema: %v", err))
	}
	var itemDoc map[string]any
	if err := json.Unmarshal(raw, &itemDoc); err != nil {
		panic(fmt.Sprintf("unmarshal response item schema: %v", err))
	}
	return map[string]any{
		"type":  "array",
		"items": itemDoc,
	}
}

// shapeSchema accepts any array of objects. Field level checks happen
// during key mapping so that loosely named keys survive.
const shapeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {"type": "object"}
}`

var compiledShape = sync.OnceValues(func() (*sjsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(shapeSchema), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal shape schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource("testcases.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile("testcases.json")
})

// validateShape checks that doc is an array of objects.
func validateShape(doc any) error {
	sch, err := compiledShape()
	if err != nil {
		return err
	}
	return sch.Validate(doc)
}
