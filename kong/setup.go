package kong

import (
	"github.com/alecthomas/kong"

	"github.com/circleci/httpvcr/kong/settings"
)

// ParseCLIWithSettings builds a parser for cli and parses args. When path is
// set, flags with an env tag take their defaults from that settings file.
func ParseCLIWithSettings(cli any, args []string, path string, opts ...kong.Option) (*kong.Context, error) {
	if path != "" {
		resolver, err := settings.Load(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kong.Resolvers(resolver))
	}
	parser, err := kong.New(cli, opts...)
	if err != nil {
		return nil, err
	}
	return parser.Parse(args)
}
