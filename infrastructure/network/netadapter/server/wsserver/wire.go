package wsserver

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
)

// envelope is the wire form of every protocol message: a JSON object tagging
// the payload with its event name.
type envelope struct {
	Event appmessage.MessageCommand `json:"event"`
	Data  json.RawMessage           `json:"data"`
}

func encodeMessage(message appmessage.Message) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode '%s' payload", message.Command())
	}
	encoded, err := json.Marshal(&envelope{Event: message.Command(), Data: data})
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode '%s' envelope", message.Command())
	}
	return encoded, nil
}

func decodeMessage(raw []byte) (appmessage.Message, error) {
	decoded := &envelope{}
	err := json.Unmarshal(raw, decoded)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode message envelope")
	}
	message, err := appmessage.MessageForCommand(decoded.Event)
	if err != nil {
		return nil, err
	}
	if len(decoded.Data) > 0 {
		err = json.Unmarshal(decoded.Data, message)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decode '%s' payload", decoded.Event)
		}
	}
	return message, nil
}
