package convert

import (
	"slices"
	"strconv"
	"strings"
)

const (
	// InputPlaceholder marks where a program's input path goes. For the
	// encoder it expands to "-" (stdin).
	InputPlaceholder = "{input}"
	// OutputPlaceholder marks where the encoder's destination path goes.
	OutputPlaceholder = "{output}"
)

// decoderArgs expands {input} in the decoder options, or appends the source
// path when no option mentions it.
func decoderArgs(p Program, source string) []string {
	args := make([]string, 0, len(p.Options)+1)
	placed := false
	for _, opt := range p.Options {
		if strings.Contains(opt, InputPlaceholder) {
			opt = strings.ReplaceAll(opt, InputPlaceholder, source)
			placed = true
		}
		args = append(args, opt)
	}
	if !placed {
		args = append(args, source)
	}
	return args
}

// encoderArgs expands placeholders in the encoder options and inserts tag
// options just before the destination. Without placeholders the result is
// options, tags, "-", destination.
func encoderArgs(p Program, destination string, tags []string) []string {
	args := make([]string, 0, len(p.Options)+len(tags)+2)
	hasInput := slices.ContainsFunc(p.Options, func(opt string) bool {
		return strings.Contains(opt, InputPlaceholder)
	})
	placed := false
	for _, opt := range p.Options {
		if strings.Contains(opt, OutputPlaceholder) {
			if !placed {
				args = append(args, tags...)
				placed = true
			}
			opt = strings.ReplaceAll(opt, OutputPlaceholder, destination)
		}
		args = append(args, strings.ReplaceAll(opt, InputPlaceholder, "-"))
	}
	if placed {
		return args
	}
	args = append(args, tags...)
	if !hasInput {
		args = append(args, "-")
	}
	return append(args, destination)
}

// commandLine renders a command for display, quoting arguments that would
// otherwise be ambiguous.
func commandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(binary))
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\n\"'\\$`") {
		return strconv.Quote(arg)
	}
	return arg
}
