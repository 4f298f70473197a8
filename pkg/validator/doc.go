// Package validator provides declarative, rule-based validation.
//
// Rules are values; Apply evaluates them all and collects the failures into
// ValidationErrors so callers see every problem at once:
//
//	err := validator.Apply(
//		validator.RequiredString("title", d.Title),
//		validator.MaxLenString("title", d.Title, 200),
//		validator.InList("priority", d.Priority, priorities),
//	)
//	if validator.IsValidationError(err) {
//		for _, f := range validator.ExtractValidationErrors(err).Fields() { ... }
//	}
package validator
