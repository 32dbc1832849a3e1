// Package validation checks configuration structs before a pool or the
// loopbench command uses them.
//
// Struct tag validation uses go-playground/validator; failures come back as
// an INVALID_CONFIG errors.AppError whose "fields" detail lists every
// offending field by its mapstructure name.
//
//	type PoolConfig struct {
//	    Workers int `mapstructure:"workers" validate:"gte=0"`
//	}
//	err := validation.Struct(cfg)
//
// Checks that do not fit a tag go through the programmatic Validator:
//
//	v := validation.New()
//	v.OneOf("environment", env, "development", "production")
//	err := v.Validate()
package validation
