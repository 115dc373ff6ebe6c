package project

// Example is the starter document written by "drumsmith init".
const Example = `# drumsmith project
# steps: x = hit, . = rest (16 per row, spaces and | ignored)
# arp notes: 0..15 from C3 to D#4, ~ = rest
patterns:
  - slot: 1
    name: groove
    tempo: 120
    swing: 50
    steps:
      kick:  "x... .... x... ...."
      snare: ".... x... .... x..."
      hihat: "x.x. x.x. x.x. x.xx"
    arp:
      waveform: sawtooth
      notes: [0, ~, 3, ~, 7, ~, 10, ~, 12, ~, 10, ~, 7, ~, 3, ~]
  - slot: 2
    name: fill
    tempo: 120
    swing: 50
    steps:
      kick:  "x... .... x.x. ...."
      snare: ".... x... .... xxxx"
      tom:   ".... ..x. ..x. ...."
      crash: "x... .... .... ...."
      clap:  ".... x... .... x..."
    voices:
      tom: {frequency: 140, decay: 0.25}
arrangement: [1, 1, 1, 2]
`
