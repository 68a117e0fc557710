package validators

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

const DateLayout = "2006-01-02"

// AudioExtensions lists the audio formats accepted for voice notes.
var AudioExtensions = []string{"mp3", "wav", "m4a", "ogg", "oga", "webm", "flac", "aac", "mp4", "mpeg", "mpga"}

// Register installs every custom tag used by request contracts.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("notfuture", NotFuture)
}

// NotFuture rejects dates after the current instant. Works on time.Time,
// *time.Time and YYYY-MM-DD strings, nil pointers are left to `omitempty`/`required`.
func NotFuture(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}

	if field.Kind() == reflect.String {
		t, err := time.Parse(DateLayout, field.String())
		if err != nil {
			return false
		}
		return !t.After(time.Now())
	}

	t, ok := field.Interface().(time.Time)
	if !ok {
		log.Warnf("validator 'notfuture' applied to non-time type: %s", field.Type().String())
		return false
	}
	return !t.After(time.Now())
}
