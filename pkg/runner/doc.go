/*
Package runner implements the interactive loop that plays a talisman conversation
over a line-oriented terminal or a JSON-Lines pipe.

It is the bridge between a Conversation and the outside world: transcript changes are
pushed to an IOHandler as they are revealed, and each line read from the handler is
turned into an event, a command or an error message.

# Key Components

  - Runner: reads input, maps it to events and commands, and reports errors.
  - IOHandler: decouples how turns are shown and how lines are read.
  - TextHandler: interactive terminal usage, with an optional typing indicator.
  - JSONHandler: headless usage, one JSON object per line.

# Input

A line is a number picking one of the listed options, the exact label of an option,
or free text where the dialogue accepts it. Lines starting with ':' are commands:

	:talisman  generate a talisman for the shown fortune
	:save      store the finished consultation
	:restart   start over
	:help      list the commands
	:quit      leave the conversation

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithLogger(logger),
	)

	if err := r.Run(ctx, conv); err != nil {
		log.Fatal(err)
	}
*/
package runner
